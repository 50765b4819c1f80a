package scopes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/variant"
)

var (
	// ErrReplyFinished is returned when pushing to a reply whose request has
	// already completed.
	ErrReplyFinished = errors.New("reply already finished")

	// ErrNoCategory is returned when pushing a result whose category was not
	// registered on the same reply.
	ErrNoCategory = errors.New("category not registered on this reply")

	// ErrLayoutRegistered is returned when layouts are registered twice or
	// after widgets were pushed.
	ErrLayoutRegistered = errors.New("preview layouts already registered")

	// ErrCardinalityReached is returned by Push once the number of results
	// requested by the search metadata has been pushed.
	ErrCardinalityReached = errors.New("result cardinality reached")
)

type emitter func(typ protocol.EventType, payload any) error

type reply struct {
	ctx  context.Context
	emit emitter

	sendMu   sync.Mutex
	finished bool
}

func (r *reply) send(typ protocol.EventType, payload any) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if r.finished {
		return ErrReplyFinished
	}
	return r.emit(typ, payload)
}

func (r *reply) finish() {
	r.sendMu.Lock()
	r.finished = true
	r.sendMu.Unlock()
}

// SearchReply is used to send results of search queries to the client.
type SearchReply struct {
	reply
	cardinality int

	mu         sync.Mutex
	categories map[string]*Category
	pushed     int
	err        error
}

func newSearchReply(ctx context.Context, emit emitter, cardinality int) *SearchReply {
	return &SearchReply{
		reply:       reply{ctx: ctx, emit: emit},
		cardinality: cardinality,
		categories:  make(map[string]*Category),
	}
}

// RegisterCategory registers a new results category with the client. The
// template is the JSON category renderer definition; an empty template
// selects the default grid. Registering an id twice returns the category
// from the first registration.
func (r *SearchReply) RegisterCategory(id, title, icon, template string) *Category {
	r.mu.Lock()
	if cat, ok := r.categories[id]; ok {
		r.mu.Unlock()
		return cat
	}
	cat := &Category{id: id, title: title, icon: icon, template: template}
	r.categories[id] = cat
	r.mu.Unlock()

	err := r.send(protocol.EventCategory, protocol.CategoryPayload{
		ID:       id,
		Title:    title,
		Icon:     icon,
		Template: template,
	})
	if err != nil {
		r.recordErr(fmt.Errorf("register category %q: %w", id, err))
	}
	return cat
}

// RegisterCategoryWithHeaderLink is RegisterCategory with a query run when
// the category header is tapped.
func (r *SearchReply) RegisterCategoryWithHeaderLink(id, title, icon, template string, link *CannedQuery) *Category {
	r.mu.Lock()
	if cat, ok := r.categories[id]; ok {
		r.mu.Unlock()
		return cat
	}
	cat := &Category{id: id, title: title, icon: icon, template: template, headerLink: link}
	r.categories[id] = cat
	r.mu.Unlock()

	payload := protocol.CategoryPayload{ID: id, Title: title, Icon: icon, Template: template}
	if link != nil {
		payload.HeaderLink = link.ToURI()
	}
	if err := r.send(protocol.EventCategory, payload); err != nil {
		r.recordErr(fmt.Errorf("register category %q: %w", id, err))
	}
	return cat
}

// RegisterDepartments sends the department tree rooted at parent.
func (r *SearchReply) RegisterDepartments(parent *Department) error {
	if parent == nil {
		return errors.New("register departments: nil root")
	}
	return r.send(protocol.EventDepartments, protocol.DepartmentsPayload{Root: parent.wire()})
}

// Push sends a result to the client. The result's attributes are copied, so
// the same value may be modified and pushed again.
func (r *SearchReply) Push(result *CategorisedResult) error {
	if err := r.pendingErr(); err != nil {
		return err
	}
	cat := result.category
	r.mu.Lock()
	registered := cat != nil && r.categories[cat.id] == cat
	limit := r.cardinality > 0 && r.pushed >= r.cardinality
	r.mu.Unlock()

	if !registered {
		if cat == nil {
			return fmt.Errorf("push result: %w", ErrNoCategory)
		}
		return fmt.Errorf("push result to %q: %w", cat.id, ErrNoCategory)
	}
	if result.URI() == "" {
		return errors.New("push result: uri must be set")
	}
	if limit {
		return ErrCardinalityReached
	}
	if err := r.send(protocol.EventResult, result.wire(cat.id)); err != nil {
		return err
	}
	r.mu.Lock()
	r.pushed++
	r.mu.Unlock()
	return nil
}

// PushFilters sends the filters and their state to the client.
func (r *SearchReply) PushFilters(filters []Filter, state FilterState) error {
	arr := make(variant.Array, len(filters))
	for i, f := range filters {
		v, err := variant.FromGo(f.serializeFilter())
		if err != nil {
			return fmt.Errorf("push filters: filter %q: %w", f.ID(), err)
		}
		arr[i] = v
	}
	var st variant.Map
	if len(state) > 0 {
		v, err := variant.FromGo(map[string]any(state))
		if err != nil {
			return fmt.Errorf("push filters: state: %w", err)
		}
		st = v.(variant.Map)
	}
	return r.send(protocol.EventFilters, protocol.FiltersPayload{Filters: arr, State: st})
}

func (r *SearchReply) recordErr(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *SearchReply) pendingErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// PreviewReply is used to send result previews to the client.
type PreviewReply struct {
	reply

	mu            sync.Mutex
	layoutsSent   bool
	widgetsPushed bool
}

func newPreviewReply(ctx context.Context, emit emitter) *PreviewReply {
	return &PreviewReply{reply: reply{ctx: ctx, emit: emit}}
}

// RegisterLayout registers the column layouts for the preview. It may be
// called once, before the first PushWidgets. Every layout must be complete
// and no two layouts may have the same number of columns.
func (r *PreviewReply) RegisterLayout(layouts ...*ColumnLayout) error {
	if len(layouts) == 0 {
		return errors.New("register layout: no layouts given")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.layoutsSent {
		return ErrLayoutRegistered
	}
	if r.widgetsPushed {
		return fmt.Errorf("%w: widgets were already pushed", ErrLayoutRegistered)
	}

	seen := make(map[int]bool, len(layouts))
	payload := protocol.LayoutsPayload{Layouts: make([]protocol.Layout, len(layouts))}
	for i, l := range layouts {
		if l.Size() != l.NumberOfColumns() {
			return fmt.Errorf("register layout: layout %d has %d of %d columns", i, l.Size(), l.NumberOfColumns())
		}
		if seen[l.NumberOfColumns()] {
			return fmt.Errorf("register layout: duplicate layout for %d columns", l.NumberOfColumns())
		}
		seen[l.NumberOfColumns()] = true
		payload.Layouts[i] = l.wire()
	}
	if err := r.send(protocol.EventLayouts, payload); err != nil {
		return err
	}
	r.layoutsSent = true
	return nil
}

// PushWidgets sends one or more widgets to the client.
func (r *PreviewReply) PushWidgets(widgets ...PreviewWidget) error {
	if len(widgets) == 0 {
		return errors.New("push widgets: no widgets given")
	}
	payload := protocol.WidgetsPayload{Widgets: make([]variant.Map, len(widgets))}
	for i, w := range widgets {
		if w.ID() == "" || w.WidgetType() == "" {
			return fmt.Errorf("push widgets: widget %d needs an id and a type", i)
		}
		v, err := variant.FromGo(map[string]any(w))
		if err != nil {
			return fmt.Errorf("push widgets: widget %q: %w", w.ID(), err)
		}
		payload.Widgets[i] = v.(variant.Map)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.send(protocol.EventWidgets, payload); err != nil {
		return err
	}
	r.widgetsPushed = true
	return nil
}

// PushAttr pushes a preview attribute to the client. Widgets mapped onto
// attr will show value in place of the result's own attribute.
func (r *PreviewReply) PushAttr(attr string, value any) error {
	v, err := variant.FromGo(value)
	if err != nil {
		return fmt.Errorf("push attribute %q: %w", attr, err)
	}
	data, err := variant.Marshal(v)
	if err != nil {
		return fmt.Errorf("push attribute %q: %w", attr, err)
	}
	return r.send(protocol.EventAttribute, protocol.AttributePayload{Name: attr, Value: data})
}
