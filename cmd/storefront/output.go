package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jrsteele09/go-storefront-client/collections"
	"github.com/jrsteele09/go-storefront-client/session"
	"github.com/jrsteele09/go-storefront-client/storefront"
)

func displayName(u *session.UserRecord) string {
	switch {
	case u == nil:
		return "unknown user"
	case u.Name != "" && u.Email != "":
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	case u.Name != "":
		return u.Name
	}
	return u.Email
}

func printUser(w io.Writer, u *session.UserRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", u.ID)
	fmt.Fprintf(tw, "Name\t%s\n", u.Name)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	if u.Role != "" {
		fmt.Fprintf(tw, "Role\t%s\n", u.Role)
	}
	_ = tw.Flush()
}

func printCourses(w io.Writer, courses []collections.CourseSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tINSTRUCTOR\tPRICE")
	for _, c := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Instructor, price(c.Price))
	}
	_ = tw.Flush()
}

func printCollection(w io.Writer, title string, s collections.State, withTotal bool) {
	if s.Error != "" {
		fmt.Fprintf(w, "%s: %s\n", title, s.Error)
	}
	if s.Count() == 0 {
		fmt.Fprintf(w, "%s is empty\n", title)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tTITLE\tPRICE\tADDED")
	for _, item := range s.Items {
		added := ""
		if !item.AddedAt.IsZero() {
			added = item.AddedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Course.ID, item.Course.Title, price(item.Course.Price), added)
	}
	if withTotal {
		fmt.Fprintf(tw, "\tTotal (%d)\t%s\t\n", s.Count(), price(s.Total))
	}
	_ = tw.Flush()
}

func printSummary(w io.Writer, snap storefront.Snapshot) {
	fmt.Fprintf(w, "Cart: %d item(s), %s. Wishlist: %d item(s).\n", snap.Cart.Count(), price(snap.Cart.Total), snap.Wishlist.Count())
}

func price(p float64) string {
	if p == 0 {
		return "Free"
	}
	return fmt.Sprintf("$%.2f", p)
}
