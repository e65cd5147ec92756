package config_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/cms/pkg/config"
	"github.com/calvinalkan/cms/pkg/schema"
)

func ptr(s string) *string { return &s }

func validRaw() config.Raw {
	return config.Raw{
		Repo: "acme/site",
		Static: map[string]config.RawEntry{
			"home": {Schema: map[string]any{"title": "string", "intro": "text?"}},
			"about": {Filename: ptr("pages/about.json"), Schema: map[string]any{
				"title": "string",
				"team":  map[string]any{"lead": "string", "members": "string[]"},
			}},
		},
		Collections: map[string]config.RawEntry{
			"posts":   {Dir: ptr("blog"), Schema: map[string]any{"title": "string", "tags": "string[]"}},
			"authors": {Schema: map[string]any{"name": "string"}},
		},
	}
}

func Test_Normalize_Applies_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Normalize(validRaw())
	require.NoError(t, err)

	require.Equal(t, "acme/site", cfg.RepoID)
	require.Equal(t, config.DefaultContentPath, cfg.ContentRoot)
	require.Equal(t, config.DefaultStaticDir, cfg.StaticDir)
	require.Equal(t, config.DefaultCollectionsDir, cfg.CollectionsDir)

	home, ok := cfg.Static("home")
	require.True(t, ok)
	require.Equal(t, "home.json", home.Filename)

	about, _ := cfg.Static("about")
	require.Equal(t, "pages/about.json", about.Filename)

	authors, ok := cfg.Collection("authors")
	require.True(t, ok)
	require.Equal(t, "authors", authors.Dir)

	posts, _ := cfg.Collection("posts")
	require.Equal(t, "blog", posts.Dir)

	want := schema.Object(map[string]*schema.Shape{"title": schema.String(), "tags": schema.StringArray()})
	require.True(t, schema.Equal(want, posts.Shape), "posts shape=%s", mustJSON(t, posts.Shape))

	if diff := cmp.Diff([]string{"about", "home"}, cfg.StaticNames()); diff != "" {
		t.Fatalf("StaticNames mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"authors", "posts"}, cfg.CollectionNames()); diff != "" {
		t.Fatalf("CollectionNames mismatch (-want +got):\n%s", diff)
	}
}

func Test_Normalize_Is_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := config.Normalize(validRaw())
	require.NoError(t, err)

	b, err := config.Normalize(validRaw())
	require.NoError(t, err)

	require.Equal(t, mustJSON(t, a), mustJSON(t, b))
}

func Test_Normalize_Of_Raw_Round_Trips(t *testing.T) {
	t.Parallel()

	a, err := config.Normalize(validRaw())
	require.NoError(t, err)

	b, err := config.Normalize(a.Raw())
	require.NoError(t, err)

	require.Equal(t, mustJSON(t, a), mustJSON(t, b))
}

func Test_Normalize_Default_Filename_Law(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"a", "home", "site-settings", "x_y.z"} {
		raw := config.Raw{
			Repo:        "o/r",
			Static:      map[string]config.RawEntry{key: {Schema: map[string]any{}}},
			Collections: map[string]config.RawEntry{key: {Schema: map[string]any{}}},
		}

		cfg, err := config.Normalize(raw)
		require.NoError(t, err, key)

		s, _ := cfg.Static(key)
		c, _ := cfg.Collection(key)

		if s.Filename != key+".json" || c.Dir != key {
			t.Errorf("key %q: filename=%q dir=%q", key, s.Filename, c.Dir)
		}
	}
}

func Test_Normalize_Reports_Every_Problem(t *testing.T) {
	t.Parallel()

	raw := config.Raw{
		Repo: "not a repo",
		Static: map[string]config.RawEntry{
			"home":  {Schema: map[string]any{"title": "number", "n": 3.0}},
			"plain": {},
			"bad":   {Filename: ptr("../escape.json"), Schema: map[string]any{}},
			"txt":   {Filename: ptr("notes.txt"), Schema: map[string]any{}},
		},
		Collections: map[string]config.RawEntry{
			"posts": {Schema: map[string]any{"meta": map[string]any{"tags": "string[]!"}}},
		},
	}

	_, err := config.Normalize(raw)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)

	want := []string{
		"repo",
		"static.bad.filename",
		"static.home.schema.n",
		"static.home.schema.title",
		"static.plain.schema",
		"static.txt.filename",
		"collections.posts.schema.meta.tags",
	}

	if diff := cmp.Diff(want, verr.Paths()); diff != "" {
		t.Fatalf("problem paths mismatch (-want +got):\n%s", diff)
	}

	require.ErrorIs(t, err, config.ErrInvalidRepoID)
	require.ErrorIs(t, err, config.ErrInvalidFieldType)
	require.ErrorIs(t, err, config.ErrMissingField)
	require.ErrorIs(t, err, config.ErrInvalidPath)

	// The field-type message names the key and the offending value.
	msg := err.Error()
	for _, s := range []string{`"title"`, `"number"`, `"tags"`, `"string[]!"`} {
		require.Contains(t, msg, s)
	}
}

func Test_Normalize_Requires_Repo_And_Collections(t *testing.T) {
	t.Parallel()

	_, err := config.Normalize(config.Raw{Static: map[string]config.RawEntry{}, Collections: map[string]config.RawEntry{}})

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"repo", "collections"}, verr.Paths())
	require.ErrorIs(t, verr.Problems[0].Err, config.ErrMissingField)
	require.ErrorIs(t, verr.Problems[1].Err, config.ErrNoCollections)

	_, err = config.Normalize(config.Raw{Repo: "o/r"})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"static", "collections"}, verr.Paths())
}

func Test_Normalize_Lenient_Repo_Accepts_Any_NonEmpty_Value(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Repo = "just-a-name"

	_, err := config.Normalize(raw)
	require.ErrorIs(t, err, config.ErrInvalidRepoID)

	cfg, err := config.Normalize(raw, config.WithLenientRepoID())
	require.NoError(t, err)
	require.Equal(t, "just-a-name", cfg.RepoID)

	raw.Repo = "  "
	_, err = config.Normalize(raw, config.WithLenientRepoID())
	require.ErrorIs(t, err, config.ErrMissingField)
}

func Test_Normalize_Rejects_Duplicate_Targets(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Collections["more"] = config.RawEntry{Dir: ptr("blog"), Schema: map[string]any{}}

	_, err := config.Normalize(raw)
	require.ErrorIs(t, err, config.ErrDuplicatePath)
}

func Test_Normalize_Rejects_Too_Deep_Schema(t *testing.T) {
	t.Parallel()

	deep := map[string]any{"leaf": "string"}
	for range schema.MaxDepth {
		deep = map[string]any{"x": deep}
	}

	raw := validRaw()
	raw.Static["deep"] = config.RawEntry{Schema: deep}

	_, err := config.Normalize(raw)
	require.ErrorIs(t, err, config.ErrShapeTooDeep)
}

func Test_Normalize_Accepts_Deepest_Allowed_Schema(t *testing.T) {
	t.Parallel()

	deep := map[string]any{"leaf": "string"}
	for range schema.MaxDepth - 1 {
		deep = map[string]any{"x": deep}
	}

	raw := validRaw()
	raw.Static["deep"] = config.RawEntry{Schema: deep}

	cfg, err := config.Normalize(raw)
	require.NoError(t, err)

	e, _ := cfg.Static("deep")
	_, err = schema.Compile(e.Shape)
	require.NoError(t, err)
}

func Test_Normalize_Resolves_Relative_Content_Root_Against_Base_Dir(t *testing.T) {
	t.Parallel()

	cfg, err := config.Normalize(validRaw(), config.WithBaseDir("/srv/site"))
	require.NoError(t, err)
	require.Equal(t, "/srv/site/content", cfg.ContentRoot)

	raw := validRaw()
	raw.ContentPath = "/data/content/"

	cfg, err = config.Normalize(raw, config.WithBaseDir("/srv/site"))
	require.NoError(t, err)
	require.Equal(t, "/data/content", cfg.ContentRoot)
}

func Test_Normalize_Of_Raw_Round_Trips_After_Relative_Base_Dir(t *testing.T) {
	t.Parallel()

	a, err := config.Normalize(validRaw(), config.WithBaseDir("site"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join("site", "content"), a.ContentRoot)

	b, err := config.Normalize(a.Raw())
	require.NoError(t, err)
	require.Equal(t, a.ContentRoot, b.ContentRoot)
	require.Equal(t, mustJSON(t, a), mustJSON(t, b))
}

func Test_ValidationError_Message_Lists_Problems(t *testing.T) {
	t.Parallel()

	_, err := config.Normalize(config.Raw{
		Repo:        "o/r",
		Static:      map[string]config.RawEntry{},
		Collections: map[string]config.RawEntry{},
	})
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "invalid config: collections: "), err.Error())
	require.False(t, errors.Is(err, config.ErrMissingField))
}

func mustJSON(t *testing.T, v interface{ MarshalJSON() ([]byte, error) }) string {
	t.Helper()

	data, err := v.MarshalJSON()
	require.NoError(t, err)

	return string(data)
}
