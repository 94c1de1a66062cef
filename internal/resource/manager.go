package resource

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/services"
	"github.com/desertthunder/bookclub/internal/shared"
)

// Status is the load state of a [Manager].
type Status int

const (
	Idle Status = iota
	Loading
	Failed
	Ready
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	case Ready:
		return "ready"
	default:
		return "idle"
	}
}

// Stats are the summary figures over the raw collection.
type Stats struct {
	Total  int
	Active int
	// Average is the mean of the kind's average field over the AverageCount rows that have it.
	Average      float64
	AverageCount int
}

// Manager is the admin page for one kind: it owns the fetched rows, their derived view and the CRUD modal.
// It is not safe for concurrent use; only [Manager.Fetch] may run on another goroutine.
type Manager struct {
	kind    Kind
	fetcher *Fetcher
	view    *View
	modal   *Controller
	logger  *log.Logger

	status  Status
	err     error
	rows    Rows
	related map[string]Rows
	gen     uint64
}

// NewManager creates an idle [Manager] for kind.
func NewManager(kind Kind, api API, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "resource", kind.Name)

	m := &Manager{
		kind:    kind,
		fetcher: NewFetcher(api, logger),
		view:    NewView(kind.SearchFields),
		logger:  logger,
	}
	m.modal = NewController(kind, api, func(ctx context.Context) {
		if err := m.Load(ctx); err != nil {
			m.logger.Warn("refresh after write failed", "error", err)
		}
	})
	return m
}

func (m *Manager) Kind() Kind              { return m.kind }
func (m *Manager) View() *View             { return m.view }
func (m *Manager) Controller() *Controller { return m.modal }
func (m *Manager) Status() Status          { return m.status }

// Err returns the error of the last failed load.
func (m *Manager) Err() error { return m.err }

// ErrMessage returns the text shown in place of the table after a failed load.
func (m *Manager) ErrMessage() string {
	return services.ErrorMessage(m.err)
}

// BeginLoad marks the page loading and returns the generation the result must be applied with.
// Any load started earlier is superseded.
func (m *Manager) BeginLoad() uint64 {
	m.gen++
	m.status = Loading
	m.err = nil
	return m.gen
}

// Fetch requests the kind's collection and its related collections. It touches no manager state.
func (m *Manager) Fetch(ctx context.Context) (Result, error) {
	return m.fetcher.Fetch(ctx, m.kind.Endpoints()...)
}

// ApplyLoad stores the outcome of the load started with gen. Results of superseded or discarded
// loads are dropped and false is returned.
func (m *Manager) ApplyLoad(gen uint64, res Result, err error) bool {
	if gen != m.gen || m.status != Loading {
		m.logger.Debug("dropping stale load", "gen", gen, "current", m.gen)
		return false
	}

	if err != nil {
		m.status = Failed
		m.err = err
		m.rows = nil
		m.related = nil
		m.view.SetRows(nil)
		return true
	}

	m.rows = res.Get(m.kind.Name)
	m.related = make(map[string]Rows, len(m.kind.Related))
	for _, ep := range m.kind.Related {
		m.related[ep.Name] = res.Get(ep.Name)
	}
	m.view.SetRows(m.rows)
	m.status = Ready
	return true
}

// Load fetches and applies in one call.
func (m *Manager) Load(ctx context.Context) error {
	gen := m.BeginLoad()
	res, err := m.Fetch(ctx)
	m.ApplyLoad(gen, res, err)
	return err
}

// Discard drops any in-flight load, e.g. when the page is closed.
func (m *Manager) Discard() {
	m.gen++
	if m.status == Loading {
		m.status = Idle
	}
}

// Rows returns the derived (filtered and sorted) rows, or nil unless the page is ready.
func (m *Manager) Rows() Rows {
	if m.status != Ready {
		return nil
	}
	return m.view.Rows()
}

// Raw returns the fetched rows in fetch order.
func (m *Manager) Raw() Rows { return m.rows }

// Related returns a companion collection fetched with the page, such as users for clubs.
func (m *Manager) Related(name string) Rows {
	if rows, ok := m.related[name]; ok {
		return rows
	}
	return Rows{}
}

// Lookup finds a raw row by id.
func (m *Manager) Lookup(id string) (Row, bool) {
	return m.rows.Find(id)
}

// Stats summarizes the raw rows.
func (m *Manager) Stats() Stats {
	return ComputeStats(m.kind, m.rows)
}

// ComputeStats counts rows, active rows, and averages the kind's average field.
// Array values contribute their length.
func ComputeStats(kind Kind, rows Rows) Stats {
	s := Stats{Total: len(rows)}
	var sum float64
	for _, r := range rows {
		if kind.IsActive(r) {
			s.Active++
		}
		if kind.AverageField == "" {
			continue
		}
		v, ok := r.Lookup(kind.AverageField)
		if !ok {
			continue
		}
		if arr, isArr := v.([]any); isArr {
			sum += float64(len(arr))
			s.AverageCount++
		} else if n, isNum := number(v); isNum {
			sum += n
			s.AverageCount++
		}
	}
	if s.AverageCount > 0 {
		s.Average = sum / float64(s.AverageCount)
	}
	return s
}

// Members resolves a club's "members" array (ids or embedded user objects) against the related
// users collection. Unknown ids are skipped.
func (m *Manager) Members(club Row) Rows {
	raw, _ := club["members"].([]any)
	users := m.Related(Users.Name)
	out := make(Rows, 0, len(raw))
	for _, el := range raw {
		id := services.IDString(el)
		if id == "" {
			continue
		}
		if u, ok := users.Find(id); ok {
			out = append(out, u)
		} else if obj, isObj := el.(map[string]any); isObj {
			out = append(out, Row(obj))
		}
	}
	return out
}
