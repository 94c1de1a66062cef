package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/bookclub/internal/shared"
)

// FieldType controls how form input is converted before it is staged in a draft.
type FieldType int

const (
	TextField FieldType = iota
	NumberField
	DateField
)

// Field is one editable attribute of a kind.
type Field struct {
	Name  string
	Label string
	Type  FieldType
}

// Column is one table column; Path may be dotted.
type Column struct {
	Title    string
	Path     string
	Fallback string // read when Path is missing, e.g. a plain "owner" string instead of an owner object
	Width    int
}

// Value returns the display text of the column for r.
func (c Column) Value(r Row) string {
	if v, ok := r.Lookup(c.Path); ok || c.Fallback == "" {
		return Stringify(v)
	}
	return r.String(c.Fallback)
}

// Kind parametrizes the resource manager for one backend collection.
type Kind struct {
	Name  string // also the key of the main collection in [Result.Data]
	Title string
	Path  string
	// Plural lists the wrapper keys the list endpoint may use, e.g. {"bookclubs": [...]}.
	Plural       []string
	SearchFields []string
	Columns      []Column
	Fields       []Field
	// Rules maps a field to go-playground/validator tags, checked before submission.
	Rules        map[string]string
	Template     Row
	StatusField  string
	ActiveValues []string
	AverageField string
	AverageLabel string
	Related      []Endpoint
}

// Endpoint returns the list endpoint of the kind itself.
func (k Kind) Endpoint() Endpoint {
	return Endpoint{Name: k.Name, Path: k.Path, Keys: k.Plural, Auth: true}
}

// Endpoints returns the main endpoint followed by the related ones.
func (k Kind) Endpoints() []Endpoint {
	return append([]Endpoint{k.Endpoint()}, k.Related...)
}

// Field returns the field named name.
func (k Kind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsActive reports whether row's status is one of the kind's active values.
func (k Kind) IsActive(row Row) bool {
	if k.StatusField == "" {
		return false
	}
	status := strings.TrimSpace(row.String(k.StatusField))
	for _, v := range k.ActiveValues {
		if strings.EqualFold(status, v) {
			return true
		}
	}
	return false
}

// ParseInput converts raw form text for field f. Empty number input stages a null.
func ParseInput(f Field, text string) (any, error) {
	switch f.Type {
	case NumberField:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", shared.ErrInvalidInput, f.Label)
		}
		return n, nil
	default:
		return text, nil
	}
}

var (
	Books = Kind{
		Name:         "books",
		Title:        "Books",
		Path:         "/books",
		Plural:       []string{"books"},
		SearchFields: []string{"title", "author"},
		Columns: []Column{
			{Title: "Title", Path: "title", Width: 30},
			{Title: "Author", Path: "author", Width: 22},
			{Title: "Genre", Path: "genre", Width: 14},
			{Title: "Year", Path: "publishedYear", Width: 6},
			{Title: "Rating", Path: "rating", Width: 6},
			{Title: "Status", Path: "status", Width: 10},
		},
		Fields: []Field{
			{Name: "title", Label: "Title"},
			{Name: "author", Label: "Author"},
			{Name: "genre", Label: "Genre"},
			{Name: "description", Label: "Description"},
			{Name: "publishedYear", Label: "Published year", Type: NumberField},
			{Name: "rating", Label: "Rating", Type: NumberField},
			{Name: "status", Label: "Status"},
		},
		Rules: map[string]string{
			"title":         "required",
			"author":        "required",
			"publishedYear": "omitempty,gte=0",
			"rating":        "omitempty,gte=0,lte=5",
		},
		Template:     Row{"title": "", "author": "", "genre": "", "description": "", "status": "available"},
		StatusField:  "status",
		ActiveValues: []string{"available", "active"},
		AverageField: "rating",
		AverageLabel: "Avg rating",
	}

	Users = Kind{
		Name:         "users",
		Title:        "Users",
		Path:         "/users",
		Plural:       []string{"users"},
		SearchFields: []string{"name", "username", "email"},
		Columns: []Column{
			{Title: "Name", Path: "name", Width: 22},
			{Title: "Username", Path: "username", Width: 16},
			{Title: "Email", Path: "email", Width: 28},
			{Title: "Role", Path: "role", Width: 8},
			{Title: "Status", Path: "status", Width: 10},
		},
		Fields: []Field{
			{Name: "name", Label: "Name"},
			{Name: "username", Label: "Username"},
			{Name: "email", Label: "Email"},
			{Name: "role", Label: "Role"},
			{Name: "status", Label: "Status"},
		},
		Rules: map[string]string{
			"name":  "required",
			"email": "required,email",
			"role":  "omitempty,oneof=user admin",
		},
		Template:     Row{"name": "", "username": "", "email": "", "role": "user", "status": "active"},
		StatusField:  "status",
		ActiveValues: []string{"active"},
		AverageField: "followers",
		AverageLabel: "Avg followers",
	}

	Clubs = Kind{
		Name:         "bookclubs",
		Title:        "Book Clubs",
		Path:         "/bookclubs",
		Plural:       []string{"bookclubs", "clubs"},
		SearchFields: []string{"name", "owner", "owner.name", "currentBook", "currentBook.title"},
		Columns: []Column{
			{Title: "Name", Path: "name", Width: 26},
			{Title: "Owner", Path: "owner.name", Fallback: "owner", Width: 18},
			{Title: "Current book", Path: "currentBook.title", Fallback: "currentBook", Width: 26},
			{Title: "Status", Path: "status", Width: 10},
		},
		Fields: []Field{
			{Name: "name", Label: "Name"},
			{Name: "description", Label: "Description"},
			{Name: "owner", Label: "Owner"},
			{Name: "currentBook", Label: "Current book"},
			{Name: "status", Label: "Status"},
		},
		Rules: map[string]string{
			"name":  "required",
			"owner": "required",
		},
		Template:     Row{"name": "", "description": "", "owner": "", "currentBook": "", "status": "active"},
		StatusField:  "status",
		ActiveValues: []string{"active"},
		AverageField: "members",
		AverageLabel: "Avg members",
		Related: []Endpoint{
			{Name: "users", Path: "/users", Keys: []string{"users"}, Auth: true},
		},
	}

	Schedules = Kind{
		Name:         "schedules",
		Title:        "Schedules",
		Path:         "/schedules",
		Plural:       []string{"schedules"},
		SearchFields: []string{"title", "club", "club.name", "location"},
		Columns: []Column{
			{Title: "Title", Path: "title", Width: 26},
			{Title: "Club", Path: "club.name", Fallback: "club", Width: 20},
			{Title: "Date", Path: "date", Width: 12},
			{Title: "Time", Path: "time", Width: 8},
			{Title: "Location", Path: "location", Width: 18},
			{Title: "Status", Path: "status", Width: 10},
		},
		Fields: []Field{
			{Name: "title", Label: "Title"},
			{Name: "club", Label: "Club"},
			{Name: "date", Label: "Date", Type: DateField},
			{Name: "time", Label: "Time"},
			{Name: "location", Label: "Location"},
			{Name: "status", Label: "Status"},
		},
		Rules: map[string]string{
			"title": "required",
			"date":  "required",
			"club":  "required",
		},
		Template:     Row{"title": "", "club": "", "date": "", "time": "", "location": "", "status": "upcoming"},
		StatusField:  "status",
		ActiveValues: []string{"upcoming", "active"},
	}
)

// Kinds returns every admin kind in tab order.
func Kinds() []Kind {
	return []Kind{Books, Users, Clubs, Schedules}
}

// KindByName resolves a kind by name, accepting "clubs" for book clubs.
func KindByName(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "clubs" || name == "club" {
		name = Clubs.Name
	}
	for _, k := range Kinds() {
		if k.Name == name || strings.TrimSuffix(k.Name, "s") == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("%w: unknown resource %q", shared.ErrInvalidArgument, name)
}
