package harness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goscope/internal/variant"
)

func testCategories() []*Category {
	music := &Category{id: "music", title: "Music", icon: "music.svg"}
	for _, uri := range []string{"song:1", "song:2", "song:3"} {
		music.results = append(music.results, &Result{
			category: music,
			attrs: variant.Map{
				"uri":    variant.String(uri),
				"title":  variant.String("Title " + uri),
				"rating": variant.Float(4.5),
				"year":   variant.Int(1969),
			},
		})
	}
	videos := &Category{id: "videos", title: "Videos", headerLink: "scope://videos?q=all"}
	return []*Category{music, videos}
}

func TestCategoryListMatcher_All(t *testing.T) {
	cats := testCategories()

	r := NewCategoryListMatcher().
		Category(NewCategoryMatcher("music")).
		Category(NewCategoryMatcher("videos")).
		Match(cats)
	assert.True(t, r.Success(), r.ConciseMessage())
	assert.NoError(t, r.Err())

	r = NewCategoryListMatcher().
		Category(NewCategoryMatcher("music")).
		Match(cats)
	assert.False(t, r.Success())
	assert.Equal(t, []string{"Category list contained 2 elements, expected 1"}, r.Failures())

	r = NewCategoryListMatcher().
		Category(NewCategoryMatcher("videos")).
		Category(NewCategoryMatcher("music")).
		Match(cats)
	assert.Equal(t, []string{
		"Category ID 'music' does not match expected 'videos'",
		"Category ID 'videos' does not match expected 'music'",
	}, r.Failures())
}

func TestCategoryListMatcher_NoChildMatchers(t *testing.T) {
	r := NewCategoryListMatcher().Match(testCategories())
	assert.True(t, r.Success())
}

func TestCategoryListMatcher_ByID(t *testing.T) {
	cats := testCategories()

	r := NewCategoryListMatcher().
		Mode(CategoryListByID).
		Category(NewCategoryMatcher("videos").HeaderLink("scope://videos?q=all")).
		Match(cats)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewCategoryListMatcher().
		Mode(CategoryListByID).
		Category(NewCategoryMatcher("books")).
		Match(cats)
	assert.Equal(t, []string{"Category with ID 'books' could not be found"}, r.Failures())
}

func TestCategoryListMatcher_StartsWith(t *testing.T) {
	cats := testCategories()

	r := NewCategoryListMatcher().
		Mode(CategoryListStartsWith).
		Category(NewCategoryMatcher("music")).
		Match(cats)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewCategoryListMatcher().
		Mode(CategoryListStartsWith).
		Category(NewCategoryMatcher("music")).
		Category(NewCategoryMatcher("videos")).
		Category(NewCategoryMatcher("books")).
		Match(cats)
	assert.Equal(t, []string{"Category list contained 2 elements, expected at least 3 for starts-with"}, r.Failures())
}

func TestCategoryListMatcher_Size(t *testing.T) {
	cats := testCategories()

	assert.True(t, NewCategoryListMatcher().HasAtLeast(2).Match(cats).Success())
	assert.True(t, NewCategoryListMatcher().HasExactly(2).Match(cats).Success())

	r := NewCategoryListMatcher().HasAtLeast(3).HasExactly(1).Match(cats)
	assert.Equal(t, []string{
		"Category list contained 2 elements, expected exactly 1",
		"Category list contained 2 elements, expected at least 3",
	}, r.Failures())
}

func TestCategoryMatcher_Fields(t *testing.T) {
	music := testCategories()[0]

	r := NewCategoryMatcher("music").Title("Music").Icon("music.svg").HeaderLink("").Match(music)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewCategoryMatcher("music").Title("Songs").Match(music)
	assert.Equal(t, []string{"Category with ID 'music', 'title' does not match: expected 'Songs', got 'Music'"}, r.Failures())
}

func TestCategoryMatcher_Results(t *testing.T) {
	music := testCategories()[0]

	r := NewCategoryMatcher("music").
		Mode(CategoryStartsWith).
		Result(NewResultMatcher("song:1")).
		Result(NewResultMatcher("song:2")).
		Match(music)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewCategoryMatcher("music").
		Result(NewResultMatcher("song:1")).
		Match(music)
	assert.Equal(t, []string{"Category with ID 'music' contained 3 elements, expected 1"}, r.Failures())

	r = NewCategoryMatcher("music").
		Mode(CategoryByURI).
		Result(NewResultMatcher("song:3").Title("Title song:3")).
		Result(NewResultMatcher("song:9")).
		Match(music)
	assert.Equal(t, []string{"Result with URI 'song:9' could not be found in category 'music'"}, r.Failures())

	r = NewCategoryMatcher("music").HasExactly(3).HasAtLeast(4).Match(music)
	assert.Equal(t, []string{"Category with ID 'music' contained 3 elements, expected at least 4"}, r.Failures())
}

func TestResultMatcher(t *testing.T) {
	res := testCategories()[0].Result(0)

	r := NewResultMatcher("song:1").
		Property("rating", 4.5).
		Properties(map[string]any{"year": 1969}).
		Properties(map[string]any{"title": "Title song:1"}).
		Match(res)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewResultMatcher("song:1").Property("year", 1969.0).Match(res)
	assert.True(t, r.Success(), "ints and floats compare numerically")

	r = NewResultMatcher("song:1").
		Property("year", 1970).
		Property("artist", "x").
		Match(res)
	assert.Equal(t, []string{
		"Result with URI 'song:1' does not have requested property 'artist'",
		"Result with URI 'song:1' has incorrect value for property 'year': expected 1970, got 1969",
	}, r.Failures())

	r = NewResultMatcher("song:2").Match(res)
	assert.Equal(t, []string{"Result URI 'song:1' does not match expected 'song:2'"}, r.Failures())

	r = NewResultMatcher("song:1").Property("bad", make(chan int)).Match(res)
	require.Len(t, r.Failures(), 1)
	assert.Contains(t, r.Failures()[0], "property 'bad'")
}

func TestMatchResult_Err(t *testing.T) {
	var r MatchResult
	r.Failure("first")
	r.Failure("second")

	err := r.Err()
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "first\nsecond", ae.Actual)
	assert.Equal(t, "Assertion failed: match\n  Expected: all matchers to succeed\n  Actual: first\nsecond", err.Error())

	var other MatchResult
	other.Failure("third")
	r.merge(other)
	assert.Equal(t, []string{"first", "second", "third"}, r.Failures())
}

func TestAssertMatchResult(t *testing.T) {
	var r MatchResult
	assert.True(t, AssertMatchResult(t, r))

	r.Failure("nope")
	rec := &recordingT{}
	assert.False(t, AssertMatchResult(rec, r))
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "nope")
}

type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func testDepartments() *DepartmentList {
	return &DepartmentList{
		id:          "Rock",
		label:       "Rock Music",
		allLabel:    "Rock Music Alt",
		parentLabel: "Browse Music",
		children: []*ChildDepartment{
			{id: "60s", label: "Rock from the 60s"},
			{id: "70s", label: "Rock from the 70s", active: true},
		},
	}
}

func TestDepartmentMatcher(t *testing.T) {
	d := testDepartments()

	r := NewDepartmentMatcher().
		ID("Rock").
		Label("Rock Music").
		AllLabel("Rock Music Alt").
		ParentID("").
		ParentLabel("Browse Music").
		IsRoot(false).
		IsHidden(false).
		HasExactly(2).
		Child(NewChildDepartmentMatcher("60s").Label("Rock from the 60s").IsActive(false)).
		Child(NewChildDepartmentMatcher("70s").IsActive(true).HasChildren(false)).
		Match(d)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewDepartmentMatcher().Label("Soul Music").IsRoot(true).Match(d)
	assert.Equal(t, []string{
		"Department 'Rock' has incorrect label: expected 'Soul Music', got 'Rock Music'",
		"Department 'Rock' has incorrect is_root: expected true, got false",
	}, r.Failures())

	r = NewDepartmentMatcher().Match(nil)
	assert.Equal(t, []string{"Department list is nil"}, r.Failures())
}

func TestDepartmentMatcher_Modes(t *testing.T) {
	d := testDepartments()

	r := NewDepartmentMatcher().
		Mode(DepartmentByID).
		Child(NewChildDepartmentMatcher("70s").Label("Rock from the 70s")).
		Child(NewChildDepartmentMatcher("80s")).
		Match(d)
	assert.Equal(t, []string{"Child department with ID '80s' could not be found"}, r.Failures())

	r = NewDepartmentMatcher().
		Mode(DepartmentStartsWith).
		Child(NewChildDepartmentMatcher("60s")).
		Match(d)
	assert.True(t, r.Success(), r.ConciseMessage())

	r = NewDepartmentMatcher().
		Child(NewChildDepartmentMatcher("70s")).
		Child(NewChildDepartmentMatcher("60s")).
		Match(d)
	assert.Equal(t, []string{
		"Child department ID '60s' does not match expected '70s'",
		"Child department ID '70s' does not match expected '60s'",
	}, r.Failures())
}

func testPreview() *PreviewView {
	p := &PreviewView{
		result:      &Result{attrs: variant.Map{"uri": variant.String("song:1"), "art": variant.String("cover.png")}},
		columnCount: 1,
		attributes:  variant.Map{},
		layouts: map[int][][]string{
			1: {{"image", "header"}},
			2: {{"image"}, {"header", "missing"}},
		},
	}
	image := &PreviewWidget{view: p, id: "image", typ: "image", attrs: variant.Map{}, components: map[string]string{"source": "art"}}
	header := &PreviewWidget{view: p, id: "header", typ: "header", attrs: variant.Map{"title": variant.String("Song")}, components: map[string]string{}}
	p.widgets = []*PreviewWidget{image, header}
	return p
}

func TestPreviewColumnMatcher(t *testing.T) {
	p := testPreview()

	r := NewPreviewColumnMatcher().
		Column(NewPreviewMatcher().
			Widget(NewPreviewWidgetMatcher("image").Type("image").Data(map[string]any{"source": "cover.png"})).
			Widget(NewPreviewWidgetMatcher("header").Data(map[string]any{"title": "Song"}))).
		Match(p.Widgets())
	assert.True(t, r.Success(), r.ConciseMessage())

	require.NoError(t, p.SetColumnCount(2))
	r = NewPreviewColumnMatcher().
		Column(NewPreviewMatcher().Widget(NewPreviewWidgetMatcher("image"))).
		Match(p.Widgets())
	assert.Equal(t, []string{"Columns size 2 is not equal to expected size 1"}, r.Failures())

	r = NewPreviewColumnMatcher().
		Column(NewPreviewMatcher().Widget(NewPreviewWidgetMatcher("image"))).
		Column(NewPreviewMatcher().Widget(NewPreviewWidgetMatcher("header")).Widget(NewPreviewWidgetMatcher("missing"))).
		Match(p.Widgets())
	assert.Equal(t, []string{"Column 1 has 1 widgets, expected 2"}, r.Failures())
}

func TestPreviewWidgetMatcher(t *testing.T) {
	p := testPreview()
	image := p.Widget("image")

	r := NewPreviewWidgetMatcher("image").Type("header").Data(map[string]any{"source": "other.png"}).Match(image)
	assert.Equal(t, []string{
		"Widget 'image' has incorrect type: expected 'header', got 'image'",
		`Widget 'image' has incorrect data: expected {"source":"other.png"}, got {"source":"cover.png"}`,
	}, r.Failures())

	r = NewPreviewWidgetMatcher("header").Match(image)
	assert.Equal(t, []string{"Widget ID 'image' does not match expected 'header'"}, r.Failures())
}

func TestPreviewView_PushedAttributeWins(t *testing.T) {
	p := testPreview()
	p.attributes["art"] = variant.String("large.png")

	assert.Equal(t, variant.Map{"source": variant.String("large.png")}, p.Widget("image").Data())
	assert.Len(t, p.WidgetsInFirstColumn(), 2)
}

func TestPreviewView_NoLayouts(t *testing.T) {
	p := testPreview()
	p.layouts = nil
	require.NoError(t, p.SetColumnCount(3))

	cols := p.Widgets()
	require.Len(t, cols, 1)
	assert.Equal(t, "image", cols[0][0].ID())
	assert.Equal(t, "header", cols[0][1].ID())
}
