package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/desertthunder/bookclub/internal/services"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/go-playground/validator/v10"
)

// ModalState is the state of the CRUD modal.
type ModalState int

const (
	Closed ModalState = iota
	AddOpen
	EditOpen
	ConfirmDeleteOpen
)

func (s ModalState) String() string {
	switch s {
	case AddOpen:
		return "add"
	case EditOpen:
		return "edit"
	case ConfirmDeleteOpen:
		return "confirm_delete"
	default:
		return "closed"
	}
}

// Mutation is a prepared write request.
type Mutation struct {
	Method string
	Path   string
	Body   Row
}

// Execute sends the mutation through api.
func (m Mutation) Execute(ctx context.Context, api API) error {
	switch m.Method {
	case http.MethodPost:
		_, err := api.Post(ctx, m.Path, m.Body, true)
		return err
	case http.MethodPut:
		_, err := api.Put(ctx, m.Path, m.Body, true)
		return err
	case http.MethodDelete:
		return api.Delete(ctx, m.Path, true)
	}
	return fmt.Errorf("%w: unsupported method %q", shared.ErrInvalidArgument, m.Method)
}

// Controller stages add/edit drafts and delete confirmations for one kind.
//
// Writes can be driven synchronously with [Controller.Submit] and [Controller.Confirm], or split into
// Prepare* / [Controller.Resolve] so the request runs elsewhere (a tea.Cmd) while the controller is only
// touched from the caller's goroutine.
type Controller struct {
	kind     Kind
	api      API
	validate *validator.Validate
	refresh  func(context.Context)

	state     ModalState
	target    string
	draft     Row
	fieldErrs map[string]string
	errMsg    string
}

// NewController creates a closed [Controller]. refresh, when set, is called after every successful write.
func NewController(kind Kind, api API, refresh func(context.Context)) *Controller {
	return &Controller{
		kind:     kind,
		api:      api,
		validate: validator.New(),
		refresh:  refresh,
	}
}

func (c *Controller) State() ModalState { return c.state }

// Target returns the id being edited or deleted.
func (c *Controller) Target() string { return c.target }

// Draft returns a copy of the staged draft.
func (c *Controller) Draft() Row { return c.draft.Clone() }

// Err returns the inline error from the last failed submission.
func (c *Controller) Err() string { return c.errMsg }

// FieldErrors returns the validation messages by field.
func (c *Controller) FieldErrors() map[string]string {
	out := make(map[string]string, len(c.fieldErrs))
	for k, v := range c.fieldErrs {
		out[k] = v
	}
	return out
}

// OpenAdd starts an add with the kind's empty template.
func (c *Controller) OpenAdd() error {
	if c.state != Closed {
		return c.invalid("add")
	}
	c.open(AddOpen, "", c.kind.Template.Clone())
	if c.draft == nil {
		c.draft = Row{}
	}
	return nil
}

// OpenEdit starts editing a shallow copy of row.
func (c *Controller) OpenEdit(row Row) error {
	if c.state != Closed {
		return c.invalid("edit")
	}
	id := row.ID()
	if id == "" {
		return fmt.Errorf("%w: row has no id", shared.ErrInvalidInput)
	}
	c.open(EditOpen, id, row.Clone())
	return nil
}

// OpenDelete asks for confirmation before deleting row. No request is made.
func (c *Controller) OpenDelete(row Row) error {
	if c.state != Closed {
		return c.invalid("delete")
	}
	id := row.ID()
	if id == "" {
		return fmt.Errorf("%w: row has no id", shared.ErrInvalidInput)
	}
	c.open(ConfirmDeleteOpen, id, nil)
	return nil
}

// Cancel closes the modal and discards the draft.
func (c *Controller) Cancel() error {
	if c.state == Closed {
		return c.invalid("cancel")
	}
	c.close()
	return nil
}

// Set stages value for field.
func (c *Controller) Set(field string, value any) error {
	if c.state != AddOpen && c.state != EditOpen {
		return c.invalid("set")
	}
	c.draft[field] = value
	delete(c.fieldErrs, field)
	return nil
}

// SetInput converts text with [ParseInput] and stages it.
func (c *Controller) SetInput(field, text string) error {
	f, ok := c.kind.Field(field)
	if !ok {
		f = Field{Name: field, Label: field}
	}
	v, err := ParseInput(f, text)
	if err != nil {
		if c.state == AddOpen || c.state == EditOpen {
			c.setFieldErr(field, err)
		}
		return err
	}
	return c.Set(field, v)
}

// Validate checks the draft against the kind's rules and records field errors.
// It reports whether the draft is valid.
func (c *Controller) Validate() bool {
	c.fieldErrs = map[string]string{}

	fields := make([]string, 0, len(c.kind.Rules))
	for f := range c.kind.Rules {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	for _, f := range fields {
		v := c.draft[f]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		if v == nil {
			v = ""
		}
		if err := c.validate.Var(v, c.kind.Rules[f]); err != nil {
			c.fieldErrs[f] = c.describe(f, err)
		}
	}
	return len(c.fieldErrs) == 0
}

// PrepareSubmit validates the draft and returns the POST or PUT to send.
// On validation failure no mutation is returned and Err is set.
func (c *Controller) PrepareSubmit() (Mutation, error) {
	if c.state != AddOpen && c.state != EditOpen {
		return Mutation{}, c.invalid("submit")
	}
	if !c.Validate() {
		c.errMsg = c.summary()
		return Mutation{}, fmt.Errorf("%w: %s", shared.ErrValidation, c.errMsg)
	}

	c.errMsg = ""
	if c.state == AddOpen {
		return Mutation{Method: http.MethodPost, Path: c.kind.Path, Body: c.draft.Clone()}, nil
	}
	return Mutation{Method: http.MethodPut, Path: services.JoinPath(c.kind.Path, c.target), Body: c.draft.Clone()}, nil
}

// PrepareDelete returns the DELETE for the confirmed target.
func (c *Controller) PrepareDelete() (Mutation, error) {
	if c.state != ConfirmDeleteOpen {
		return Mutation{}, c.invalid("confirm")
	}
	c.errMsg = ""
	return Mutation{Method: http.MethodDelete, Path: services.JoinPath(c.kind.Path, c.target)}, nil
}

// Resolve applies the outcome of a prepared mutation. Success closes the modal; failure keeps it
// open with the draft intact and the server's message as the inline error.
func (c *Controller) Resolve(err error) {
	if err != nil {
		c.errMsg = services.ErrorMessage(err)
		return
	}
	c.close()
}

// Submit validates and sends the draft, then refreshes on success.
func (c *Controller) Submit(ctx context.Context) error {
	m, err := c.PrepareSubmit()
	if err != nil {
		return err
	}
	return c.run(ctx, m)
}

// Confirm sends exactly one DELETE for the target, then refreshes on success.
func (c *Controller) Confirm(ctx context.Context) error {
	m, err := c.PrepareDelete()
	if err != nil {
		return err
	}
	return c.run(ctx, m)
}

func (c *Controller) run(ctx context.Context, m Mutation) error {
	err := m.Execute(ctx, c.api)
	c.Resolve(err)
	if err != nil {
		return err
	}
	if c.refresh != nil {
		c.refresh(ctx)
	}
	return nil
}

func (c *Controller) open(state ModalState, target string, draft Row) {
	c.state = state
	c.target = target
	c.draft = draft
	c.fieldErrs = map[string]string{}
	c.errMsg = ""
}

func (c *Controller) close() {
	c.open(Closed, "", nil)
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", shared.ErrInvalidState, op, c.state)
}

func (c *Controller) setFieldErr(field string, err error) {
	if c.fieldErrs == nil {
		c.fieldErrs = map[string]string{}
	}
	c.fieldErrs[field] = strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
}

func (c *Controller) label(field string) string {
	if f, ok := c.kind.Field(field); ok && f.Label != "" {
		return f.Label
	}
	return field
}

func (c *Controller) describe(field string, err error) string {
	label := c.label(field)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", label)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, fe.Tag())
	}
}

// summary joins field errors in field order.
func (c *Controller) summary() string {
	fields := make([]string, 0, len(c.fieldErrs))
	for f := range c.fieldErrs {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = c.fieldErrs[f]
	}
	return strings.Join(msgs, "; ")
}
