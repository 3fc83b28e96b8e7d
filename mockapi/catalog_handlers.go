package mockapi

import "net/http"

func (s *Server) CoursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, s.catalog.List(), "")
	}
}

func (s *Server) CourseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		course, ok := s.catalog.Get(r.PathValue("courseId"))
		if !ok {
			writeFailure(w, http.StatusNotFound, "Course not found")
			return
		}
		writeSuccess(w, http.StatusOK, course, "")
	}
}
