// Command goscope is a sample scope used to exercise the harness end to end.
// It serves a small music catalogue: two results per query, a Rock/Soul
// department tree, a filter and a preview with 1, 2 and 3 column layouts.
package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/roach88/goscope/internal/scopes"
)

const searchCategoryTemplate = `{
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

const artURL = "https://pbs.twimg.com/profile_images/1117820653/5ttls5.jpg.png"

type goScope struct {
	base *scopes.ScopeBase
}

func (s *goScope) SetScopeBase(base *scopes.ScopeBase) {
	s.base = base

	registry := base.ListRegistryScopes()
	for _, id := range slices.Sorted(maps.Keys(registry)) {
		md := registry[id]
		base.Logger().Debug("registry scope", "id", id, "display_name", md.DisplayName, "description", md.Description)
	}
}

func (s *goScope) Search(ctx context.Context, query *scopes.CannedQuery, metadata *scopes.SearchMetadata, reply *scopes.SearchReply) error {
	root, err := departments(query)
	if err != nil {
		return err
	}
	if err := reply.RegisterDepartments(root); err != nil {
		return err
	}

	options := scopes.NewOptionSelectorFilter("f1", "Options", false)
	if err := reply.PushFilters([]scopes.Filter{options}, query.FilterState()); err != nil {
		return err
	}

	return addQueryResults(reply, query.QueryString())
}

func addQueryResults(reply *scopes.SearchReply, query string) error {
	cat := reply.RegisterCategory("category", "Category", "", searchCategoryTemplate)

	result := scopes.NewCategorisedResult(cat)
	result.SetURI("http://localhost/" + query)
	result.SetDndURI("http://localhost_dnduri" + query)
	result.SetTitle("TEST" + query)
	result.SetArt(artURL)
	result.Set("test_value_bool", true)
	result.Set("test_value_string", "test_value"+query)
	result.Set("test_value_int", 1999)
	result.Set("test_value_float", 1.999)
	if err := reply.Push(result); err != nil {
		return err
	}

	result.SetURI("http://localhost2/" + query)
	result.SetDndURI("http://localhost_dnduri2" + query)
	result.SetTitle("TEST2")
	result.Set("test_value_bool", false)
	result.Set("test_value_string", "test_value2"+query)
	result.Set("test_value_int", 2000)
	result.Set("test_value_float", 2.1)
	result.Set("test_value_map", map[string]any{"value1": 1, "value2": "string_value"})
	result.Set("test_value_array", []any{1999, "string_value"})
	return reply.Push(result)
}

func departments(query *scopes.CannedQuery) (*scopes.Department, error) {
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
		dept, err := scopes.NewDepartment(genre.id, query, genre.label)
		if err != nil {
			return nil, err
		}
		dept.SetAlternateLabel(genre.label + " Alt")
		for _, c := range genre.children {
			child, err := scopes.NewDepartment(c[0], query, c[1])
			if err != nil {
				return nil, err
			}
			dept.AddSubdepartment(child)
		}
		root.AddSubdepartment(dept)
	}
	return root, nil
}

func (s *goScope) Preview(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, reply *scopes.PreviewReply) error {
	one := scopes.NewColumnLayout(1)
	two := scopes.NewColumnLayout(2)
	three := scopes.NewColumnLayout(3)
	one.AddColumn("image", "header", "summary", "actions")
	two.AddColumn("image")
	two.AddColumn("header", "summary", "actions")
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
		s.base.Logger().Debug("preview without string scope data", "err", err)
		data = ""
	}
	if data == "" {
		return reply.PushWidgets(header, image, summary, actions)
	}

	extra := scopes.NewPreviewWidget("extra", "text")
	extra.AddAttributeValue("text", "test Text")
	if err := reply.PushAttr("description", data); err != nil {
		return err
	}
	return reply.PushWidgets(header, image, summary, actions, extra)
}

func (s *goScope) PerformAction(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, widgetID, actionID string) (*scopes.ActivationResponse, error) {
	switch actionID {
	case "download":
		return scopes.NewActivationResponse(scopes.ActivationShowPreview), nil
	case "open":
		return scopes.NewActivationResponse(scopes.ActivationHideDash), nil
	}
	return scopes.NewActivationResponse(scopes.ActivationNotHandled), nil
}

func main() {
	if err := scopes.Run(&goScope{}); err != nil {
		fmt.Fprintln(os.Stderr, "goscope:", err)
		os.Exit(1)
	}
}
