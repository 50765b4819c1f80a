package harness

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/goscope/internal/scopes"
)

const musicTemplate = `{
  "schema-version": 1,
  "template": {
    "category-layout": "grid",
    "card-size": "small"
  },
  "components": {
    "title": "title",
    "art":  "art",
    "subtitle": "username"
  }
}`

const testArt = "https://pbs.twimg.com/profile_images/1117820653/5ttls5.jpg.png"

// musicScope answers like a small music catalogue: two results per query,
// a Rock/Soul department tree and a preview with 1, 2 and 3 column
// layouts.
type musicScope struct {
	base *scopes.ScopeBase
}

func (s *musicScope) SetScopeBase(base *scopes.ScopeBase) { s.base = base }

func (s *musicScope) Search(ctx context.Context, query *scopes.CannedQuery, metadata *scopes.SearchMetadata, reply *scopes.SearchReply) error {
	root, err := musicDepartments(query)
	if err != nil {
		return err
	}
	if err := reply.RegisterDepartments(root); err != nil {
		return err
	}

	if query.QueryString() == "intercept" {
		cat := reply.RegisterCategory("intercept", "Intercepted", "", "")
		for _, uri := range []string{"http://intercept/preview", "http://intercept/dash", "http://intercept/annotated"} {
			r := scopes.NewCategorisedResult(cat)
			r.SetURI(uri)
			r.SetTitle(uri)
			r.SetInterceptActivation()
			if err := reply.Push(r); err != nil {
				return err
			}
		}
		return nil
	}

	var summary map[string]any
	if query.QueryString() == "filtered" {
		if summary, err = pushMusicFilters(reply, query.FilterState()); err != nil {
			return err
		}
	}

	q := query.QueryString()
	cat := reply.RegisterCategory("category", "Category", "", musicTemplate)

	r := scopes.NewCategorisedResult(cat)
	if summary != nil {
		r.Set("filter_summary", summary)
	}
	r.SetURI("http://localhost/" + q)
	r.SetDndURI("http://localhost_dnduri" + q)
	r.SetTitle("TEST" + q)
	r.SetArt(testArt)
	r.Set("test_value_bool", true)
	r.Set("test_value_string", "test_value"+q)
	r.Set("test_value_int", 1999)
	r.Set("test_value_float", 1.999)
	if err := reply.Push(r); err != nil {
		return err
	}

	r.SetURI("http://localhost2/" + q)
	r.SetDndURI("http://localhost_dnduri2" + q)
	r.SetTitle("TEST2")
	r.Set("test_value_bool", false)
	r.Set("test_value_string", "test_value2"+q)
	r.Set("test_value_int", 2000)
	r.Set("test_value_float", 2.1)
	r.Set("test_value_map", map[string]any{"value1": 1, "value2": "string_value"})
	r.Set("test_value_array", []any{1999, "string_value"})
	return reply.Push(r)
}

func musicDepartments(query *scopes.CannedQuery) (*scopes.Department, error) {
	root, err := scopes.NewDepartment("", query, "Browse Music")
	if err != nil {
		return nil, err
	}
	root.SetAlternateLabel("Browse Music Alt")
	for _, genre := range []struct {
		id, label string
		children  [][2]string
	}{
		{"Rock", "Rock Music", [][2]string{{"60s", "Rock from the 60s"}, {"70s", "Rock from the 70s"}}},
		{"Soul", "Soul Music", [][2]string{{"Motown", "Motown Soul"}, {"New Soul", "New Soul"}}},
	} {
		d, err := scopes.NewDepartment(genre.id, query, genre.label)
		if err != nil {
			return nil, err
		}
		d.SetAlternateLabel(genre.label + " Alt")
		for _, c := range genre.children {
			child, err := scopes.NewDepartment(c[0], query, c[1])
			if err != nil {
				return nil, err
			}
			d.AddSubdepartment(child)
		}
		root.AddSubdepartment(d)
	}
	return root, nil
}

// pushMusicFilters pushes one filter of every type and returns what the
// scope reads back from state.
func pushMusicFilters(reply *scopes.SearchReply, state scopes.FilterState) (map[string]any, error) {
	options := scopes.NewOptionSelectorFilter("f1", "Options", false)
	options.AddOption("o1", "Option 1")
	decade := scopes.NewRadioButtonsFilter("decade", "Decade")
	decade.AddOption("60s", "Sixties")
	decade.AddOption("70s", "Seventies")
	stars := scopes.NewRatingFilter("stars", "Rating")
	stars.AddOption("4", "4+")
	vinyl := scopes.NewSwitchFilter("vinyl", "Vinyl only")
	price := scopes.NewValueSliderFilter("price", "Max price", "Up to %1", 0, 100)
	year := scopes.NewRangeInputFilter("year", "Year", "From", "To", "")

	filters := []scopes.Filter{options, decade, stars, vinyl, price, year}
	if err := reply.PushFilters(filters, state); err != nil {
		return nil, err
	}

	summary := map[string]any{
		"options": options.ActiveOptions(state),
		"vinyl":   vinyl.IsOn(state),
	}
	if v, ok := decade.ActiveOption(state); ok {
		summary["decade"] = v
	}
	if v, ok := stars.ActiveRating(state); ok {
		summary["stars"] = v
	}
	if v, ok := price.Value(state); ok {
		summary["price"] = v
	}
	if v, ok := year.StartValue(state); ok {
		summary["year_start"] = v
	}
	if v, ok := year.EndValue(state); ok {
		summary["year_end"] = v
	}
	return summary, nil
}

func (s *musicScope) Preview(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, reply *scopes.PreviewReply) error {
	one := scopes.NewColumnLayout(1)
	one.AddColumn("image", "header", "summary", "actions")
	two := scopes.NewColumnLayout(2)
	two.AddColumn("image")
	two.AddColumn("header", "summary", "actions")
	three := scopes.NewColumnLayout(3)
	three.AddColumn("image")
	three.AddColumn("header", "summary", "actions")
	three.AddColumn()
	if err := reply.RegisterLayout(one, two, three); err != nil {
		return err
	}

	header := scopes.NewPreviewWidget("header", "header")
	header.AddAttributeMapping("title", "title")
	header.AddAttributeMapping("subtitle", "subtitle")

	image := scopes.NewPreviewWidget("image", "image")
	image.AddAttributeMapping("source", "art")

	summary := scopes.NewPreviewWidget("summary", "text")
	summary.AddAttributeMapping("text", "description")

	actions := scopes.NewPreviewWidget("actions", "actions")
	actions.AddAttributeValue("actions", []any{
		map[string]any{"id": "open", "label": "Open", "uri": "application:///tmp/non-existent.desktop"},
		map[string]any{"id": "download", "label": "Download"},
		map[string]any{"id": "hide", "label": "Hide"},
	})

	var data string
	if err := metadata.ScopeData(&data); err != nil {
		return err
	}
	if data != "" {
		extra := scopes.NewPreviewWidget("extra", "text")
		extra.AddAttributeValue("text", "test Text")
		if err := reply.PushAttr("description", data); err != nil {
			return err
		}
		return reply.PushWidgets(header, image, summary, actions, extra)
	}
	return reply.PushWidgets(header, image, summary, actions)
}

func (s *musicScope) Activate(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata) (*scopes.ActivationResponse, error) {
	if strings.HasSuffix(result.URI(), "/dash") {
		return scopes.NewActivationResponse(scopes.ActivationShowDash), nil
	}
	resp := scopes.NewActivationResponse(scopes.ActivationShowPreview)
	if strings.HasSuffix(result.URI(), "/annotated") {
		resp.SetScopeData("from response")
	}
	return resp, nil
}

func (s *musicScope) PerformAction(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, widgetID, actionID string) (*scopes.ActivationResponse, error) {
	switch actionID {
	case "download":
		return scopes.NewActivationResponse(scopes.ActivationShowPreview), nil
	case "annotate":
		resp := scopes.NewActivationResponse(scopes.ActivationShowPreview)
		resp.SetScopeData("from response")
		return resp, nil
	case "open":
		return scopes.NewActivationResponse(scopes.ActivationHideDash), nil
	case "more":
		q := scopes.NewCannedQuery(s.base.ScopeID(), "more", "Soul")
		return scopes.NewActivationResponseForQuery(q), nil
	case "explode":
		return nil, errors.New("action exploded")
	}
	return scopes.NewActivationResponse(scopes.ActivationNotHandled), nil
}

// faultyScope misbehaves depending on the query string.
type faultyScope struct{}

func (faultyScope) SetScopeBase(*scopes.ScopeBase) {}

func (faultyScope) Search(ctx context.Context, query *scopes.CannedQuery, metadata *scopes.SearchMetadata, reply *scopes.SearchReply) error {
	switch query.QueryString() {
	case "fail":
		return errors.New("search failed")
	case "panic":
		panic("boom")
	case "block":
		<-ctx.Done()
		return ctx.Err()
	}
	reply.RegisterCategory("empty", "Empty", "", "")
	return nil
}

func (faultyScope) Preview(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, reply *scopes.PreviewReply) error {
	return errors.New("no preview")
}

func testdataPath(name string) string {
	return filepath.Join("testdata", name)
}

func testLauncher() InProcessLauncher {
	return InProcessLauncher{
		"goscope": &musicScope{},
		"faulty":  faultyScope{},
	}
}

// newTestHarness builds a harness over the in-process scopes with goscope
// active and closes it when the test ends.
func newTestHarness(t *testing.T, modify ...func(*Parameters)) *ScopeHarness {
	t.Helper()
	p := Parameters{
		ScopeList: []string{testdataPath("goscope.ini"), testdataPath("faulty.ini")},
		Timeout:   5 * time.Second,
		Launcher:  testLauncher(),
		Logger:    slog.New(slog.DiscardHandler),
	}
	for _, m := range modify {
		m(&p)
	}
	h, err := NewFromScopeList(context.Background(), p)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	require.NoError(t, h.ResultsView().SetActiveScope("goscope"))
	return h
}
