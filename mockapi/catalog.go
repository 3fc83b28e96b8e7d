package mockapi

import (
	"sort"
	"sync"
)

// Course is a catalog entry as the API serves it.
type Course struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Instructor  string  `json:"instructor"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Duration    int     `json:"duration"` // minutes
	Rating      float64 `json:"rating"`
}

// Catalog is a read-mostly set of courses keyed by ID.
type Catalog struct {
	lock    sync.RWMutex
	courses map[string]Course
}

func NewCatalog(courses ...Course) *Catalog {
	c := &Catalog{courses: make(map[string]Course, len(courses))}
	for _, course := range courses {
		c.Put(course)
	}
	return c
}

// SeedCatalog returns the courses the mock server starts with.
func SeedCatalog() *Catalog {
	return NewCatalog(
		Course{ID: "course-go-basics", Title: "Go Fundamentals", Description: "Types, functions, packages and the toolchain.", Instructor: "Ada Byron", Price: 49.99, Duration: 420, Rating: 4.7},
		Course{ID: "course-go-concurrency", Title: "Concurrency in Go", Description: "Goroutines, channels and the sync package.", Instructor: "Ada Byron", Price: 59.99, Duration: 360, Rating: 4.8},
		Course{ID: "course-http-apis", Title: "Building HTTP APIs", Description: "Routing, middleware and JSON services.", Instructor: "Grace Murray", Price: 39.5, Duration: 300, Rating: 4.5},
		Course{ID: "course-redis", Title: "Redis for Developers", Description: "Data structures, expiry and caching patterns.", Instructor: "Linus Edsger", Price: 29, Duration: 240, Rating: 4.4},
		Course{ID: "course-testing", Title: "Testing Go Services", Description: "Table tests, fakes and httptest.", Instructor: "Grace Murray", Price: 0, Duration: 180, Rating: 4.6},
	)
}

func (c *Catalog) Put(course Course) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.courses[course.ID] = course
}

func (c *Catalog) Get(id string) (Course, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	course, ok := c.courses[id]
	return course, ok
}

// List returns every course ordered by title.
func (c *Catalog) List() []Course {
	c.lock.RLock()
	defer c.lock.RUnlock()
	list := make([]Course, 0, len(c.courses))
	for _, course := range c.courses {
		list = append(list, course)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Title == list[j].Title {
			return list[i].ID < list[j].ID
		}
		return list[i].Title < list[j].Title
	})
	return list
}
