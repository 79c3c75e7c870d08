package models

// UserRow is one row of the usage matrix.
type UserRow struct {
	Info  Entry
	Cells []Value
	Sum   Value
}

// Key returns the row index label.
func (r *UserRow) Key() string {
	return r.Info.Username
}

// Matrix holds SBU usage per user and month, plus the totals row.
type Matrix struct {
	Months []Month
	Rows   []UserRow
	Total  UserRow
}

// Row returns the row for username.
func (m *Matrix) Row(username string) (*UserRow, bool) {
	for i := range m.Rows {
		if m.Rows[i].Info.Username == username {
			return &m.Rows[i], true
		}
	}
	return nil, false
}

// MonthIndex returns the column index of month, or -1.
func (m *Matrix) MonthIndex(month Month) int {
	for i, mo := range m.Months {
		if mo == month {
			return i
		}
	}
	return -1
}

// ProjectInfo is the project-level part of the roster attributes.
type ProjectInfo struct {
	Project     string
	PI          string
	Description string
	Requested   float64
}

// ProjectRow is one row of a per-project table.
type ProjectRow struct {
	Info        ProjectInfo
	ActiveUsers []string
	ActiveNames []string
	Cells       []Value
	Sum         Value
}

// Key returns the row index label.
func (r *ProjectRow) Key() string {
	return r.Info.Project
}

// ProjectTable holds values per project and month, plus the totals row.
type ProjectTable struct {
	Months []Month
	Rows   []ProjectRow
	Total  ProjectRow
}

// Row returns the row for project.
func (t *ProjectTable) Row(project string) (*ProjectRow, bool) {
	for i := range t.Rows {
		if t.Rows[i].Info.Project == project {
			return &t.Rows[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the table.
func (t ProjectTable) Clone() ProjectTable {
	out := ProjectTable{
		Months: append([]Month(nil), t.Months...),
		Rows:   make([]ProjectRow, len(t.Rows)),
		Total:  t.Total.clone(),
	}
	for i := range t.Rows {
		out.Rows[i] = t.Rows[i].clone()
	}
	return out
}

func (r ProjectRow) clone() ProjectRow {
	r.ActiveUsers = append([]string(nil), r.ActiveUsers...)
	r.ActiveNames = append([]string(nil), r.ActiveNames...)
	r.Cells = append([]Value(nil), r.Cells...)
	return r
}
