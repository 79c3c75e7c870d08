package models

import (
	"slices"
	"time"
)

// SumKey is the row key and project code of the synthetic totals row.
const SumKey = "sum"

// InfoColumns lists the info sub-columns in export order.
var InfoColumns = []string{"project", "name", "description", "SBU requested", "PI", "active"}

// Entry is one user account of the roster.
type Entry struct {
	Username    string
	Name        string
	Project     string
	PI          string
	Description string
	Requested   float64
	Active      bool
}

// Roster is the list of user accounts sorted by project, then username.
type Roster struct {
	Entries        []Entry
	DefaultProject string
}

// Usernames returns every username in roster order.
func (r *Roster) Usernames() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Username)
	}
	return names
}

// Projects returns the distinct project codes in roster order.
func (r *Roster) Projects() []string {
	var projects []string
	for _, e := range r.Entries {
		if !slices.Contains(projects, e.Project) {
			projects = append(projects, e.Project)
		}
	}
	return projects
}

// Members returns the usernames belonging to project.
func (r *Roster) Members(project string) []string {
	var members []string
	for _, e := range r.Entries {
		if e.Project == project {
			members = append(members, e.Username)
		}
	}
	return members
}

// Lookup returns the entry for username.
func (r *Roster) Lookup(username string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Username == username {
			return e, true
		}
	}
	return Entry{}, false
}

// UsageRecord is one line of accounting output: a user's usage in one month.
type UsageRecord struct {
	Month      Month
	Account    string
	User       string
	Used       time.Duration
	Restituted time.Duration
}

// Hours returns the net usage in hours.
func (r UsageRecord) Hours() float64 {
	return (r.Used - r.Restituted).Seconds() / 3600
}
