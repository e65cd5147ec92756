package schema_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/cms/pkg/schema"
)

func mustCompile(tb testing.TB, s *schema.Shape) *schema.Validator {
	tb.Helper()

	v, err := schema.Compile(s)
	require.NoError(tb, err)

	return v
}

func postShape() *schema.Shape {
	return schema.Object(map[string]*schema.Shape{
		"title":   schema.String(),
		"tags":    schema.StringArray(),
		"summary": schema.Text().Opt(),
		"author": schema.Object(map[string]*schema.Shape{
			"name":  schema.String(),
			"email": schema.String().Opt(),
		}),
	})
}

func Test_Validate_Accepts_Document_Matching_Shape(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, postShape())

	got, err := v.ValidateJSON([]byte(`{"title":"Hi","tags":["x","y"],"summary":"s","author":{"name":"n"}}`))
	require.NoError(t, err)

	want := map[string]any{
		"title":   "Hi",
		"tags":    []any{"x", "y"},
		"summary": "s",
		"author":  map[string]any{"name": "n"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("validated value mismatch (-want +got):\n%s", diff)
	}
}

func Test_Validate_Strips_Undeclared_Keys(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.Object(map[string]*schema.Shape{"title": schema.String()}))

	got, err := v.ValidateJSON([]byte(`{"title":"Hi","draft":true,"n":3}`))
	require.NoError(t, err)

	if diff := cmp.Diff(map[string]any{"title": "Hi"}, got); diff != "" {
		t.Fatalf("validated value mismatch (-want +got):\n%s", diff)
	}
}

func Test_Validate_Accepts_Absent_And_Null_Optional_Fields(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.Object(map[string]*schema.Shape{
		"title":    schema.String(),
		"subtitle": schema.String().Opt(),
	}))

	for _, doc := range []string{`{"title":"a"}`, `{"title":"a","subtitle":null}`} {
		got, err := v.ValidateJSON([]byte(doc))
		require.NoError(t, err, doc)

		if diff := cmp.Diff(map[string]any{"title": "a"}, got); diff != "" {
			t.Fatalf("%s: mismatch (-want +got):\n%s", doc, diff)
		}
	}
}

func Test_Validate_Reports_Every_Issue_With_Pointer_Paths(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, postShape())

	_, err := v.ValidateJSON([]byte(`{"title":42,"tags":["ok",7,null],"author":{"email":"e"},"summary":false}`))
	require.ErrorIs(t, err, schema.ErrValidation)

	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)

	// Fields are visited in sorted order: author, summary, tags, title.
	want := []schema.Issue{
		{Path: "/author/name", Expected: "string", Actual: "missing"},
		{Path: "/summary", Expected: "string", Actual: "boolean"},
		{Path: "/tags/1", Expected: "string", Actual: "number"},
		{Path: "/tags/2", Expected: "string", Actual: "null"},
		{Path: "/title", Expected: "string", Actual: "number"},
	}

	if diff := cmp.Diff(want, verr.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func Test_Validate_Rejects_Wrong_Container_Kinds(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, postShape())

	tests := []struct {
		name string
		doc  string
		path string
		exp  string
		act  string
	}{
		{name: "root array", doc: `[]`, path: "", exp: "object", act: "array"},
		{name: "tags string", doc: `{"title":"t","tags":"x","author":{"name":"n"}}`, path: "/tags", exp: "array", act: "string"},
		{name: "author null", doc: `{"title":"t","tags":[],"author":null}`, path: "/author", exp: "object", act: "null"},
		{name: "author array", doc: `{"title":"t","tags":[],"author":[]}`, path: "/author", exp: "object", act: "array"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := v.ValidateJSON([]byte(tc.doc))

			var verr *schema.ValidationError
			require.ErrorAs(t, err, &verr)

			want := []schema.Issue{{Path: tc.path, Expected: tc.exp, Actual: tc.act}}
			if diff := cmp.Diff(want, verr.Issues); diff != "" {
				t.Fatalf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Validate_Does_Not_Coerce_Scalars(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.Object(map[string]*schema.Shape{"n": schema.String()}))

	for _, doc := range []string{`{"n":1}`, `{"n":true}`, `{"n":["1"]}`, `{"n":{}}`} {
		_, err := v.ValidateJSON([]byte(doc))
		if !errors.Is(err, schema.ErrValidation) {
			t.Errorf("%s: err=%v, want ErrValidation", doc, err)
		}
	}
}

func Test_Validate_Escapes_Pointer_Tokens(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.Object(map[string]*schema.Shape{"a/b~c": schema.String()}))

	_, err := v.Validate(map[string]any{})

	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.HasPath("/a~1b~0c"), "issues=%v", verr.Issues)
}

func Test_ValidateJSON_Returns_Decode_Error_When_Not_JSON(t *testing.T) {
	t.Parallel()

	v := mustCompile(t, schema.Object(nil))

	_, err := v.ValidateJSON([]byte(`{"title":`))
	require.Error(t, err)
	require.NotErrorIs(t, err, schema.ErrValidation)

	_, err = v.ValidateJSON([]byte(`{} {}`))
	require.Error(t, err)
}

func Test_DecodeJSON_Rejects_Trailing_Data_And_Invalid_UTF8(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		`{"a":"b"}]`,
		`{"a":"b"}}`,
		`{"a":"b"} x`,
		`["x"],`,
		"\"\xff\xfe\"",
		"{\"a\":\"\xc3\x28\"}",
	} {
		_, err := schema.DecodeJSON([]byte(input))
		require.Error(t, err, "input %q", input)
	}

	for _, input := range []string{`{"a":"b"}`, "{\"a\":\"b\"}\n\t ", `"héllo"`} {
		_, err := schema.DecodeJSON([]byte(input))
		require.NoError(t, err, "input %q", input)
	}
}

func Test_Compile_Accepts_Shared_Subshape(t *testing.T) {
	t.Parallel()

	addr := schema.Object(map[string]*schema.Shape{"city": schema.String()})
	shape := schema.Object(map[string]*schema.Shape{"home": addr, "work": addr})

	v, err := schema.Compile(shape)
	require.NoError(t, err)

	_, err = v.ValidateJSON([]byte(`{"home":{"city":"a"},"work":{"city":"b"}}`))
	require.NoError(t, err)
}

func Test_Compile_Shares_Subshapes_Without_Blowup(t *testing.T) {
	t.Parallel()

	level := schema.String()
	for range schema.MaxDepth - 1 {
		level = schema.Object(map[string]*schema.Shape{"a": level, "b": level})
	}

	v := mustCompile(t, level)

	_, err := v.ValidateJSON([]byte(`{"b":{}}`))

	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.HasPath("/a"), "issues=%v", verr.Issues)
	require.True(t, verr.HasPath("/b/a"), "issues=%v", verr.Issues)
	require.True(t, verr.HasPath("/b/b"), "issues=%v", verr.Issues)
}

func Test_Compile_Fails_When_Shared_Subshape_Reappears_Too_Deep(t *testing.T) {
	t.Parallel()

	deep := schema.String()
	for range schema.MaxDepth - 1 {
		deep = schema.Object(map[string]*schema.Shape{"x": deep})
	}

	// "a" sorts first, so deep compiles at depth 1 and is reused at depth 2.
	_, err := schema.Compile(schema.Object(map[string]*schema.Shape{"a": deep}))
	require.NoError(t, err)

	shape := schema.Object(map[string]*schema.Shape{
		"a": deep,
		"b": schema.Object(map[string]*schema.Shape{"c": deep}),
	})

	_, err = schema.Compile(shape)
	require.ErrorIs(t, err, schema.ErrShapeTooDeep)
}

func Test_Compile_Fails_When_Shape_Contains_Itself(t *testing.T) {
	t.Parallel()

	self := schema.Object(map[string]*schema.Shape{"title": schema.String()})
	self.Fields["child"] = self

	_, err := schema.Compile(self)
	require.ErrorIs(t, err, schema.ErrCyclicShape)
}

func Test_Compile_Fails_When_Shape_Too_Deep(t *testing.T) {
	t.Parallel()

	shape := schema.String()
	for range schema.MaxDepth + 1 {
		shape = schema.Object(map[string]*schema.Shape{"x": shape})
	}

	_, err := schema.Compile(shape)
	require.ErrorIs(t, err, schema.ErrShapeTooDeep)
}

func Test_Compile_Fails_On_Nil_Or_Invalid_Shape(t *testing.T) {
	t.Parallel()

	_, err := schema.Compile(nil)
	require.ErrorIs(t, err, schema.ErrInvalidShape)

	_, err = schema.Compile(schema.Object(map[string]*schema.Shape{"x": {}}))
	require.ErrorIs(t, err, schema.ErrInvalidShape)
}

func Test_Compile_Twice_Yields_Same_Verdicts(t *testing.T) {
	t.Parallel()

	a := mustCompile(t, postShape())
	b := mustCompile(t, postShape())

	docs := []string{
		`{"title":"Hi","tags":[],"author":{"name":"n"}}`,
		`{"title":1,"tags":[2],"author":{}}`,
		`{"tags":[],"author":{"name":"n"},"extra":1}`,
		`null`,
	}

	for _, doc := range docs {
		gotA, errA := a.ValidateJSON([]byte(doc))
		gotB, errB := b.ValidateJSON([]byte(doc))

		if diff := cmp.Diff(gotA, gotB); diff != "" {
			t.Errorf("%s: values differ:\n%s", doc, diff)
		}

		if (errA == nil) != (errB == nil) {
			t.Fatalf("%s: errA=%v errB=%v", doc, errA, errB)
		}

		if errA != nil && errA.Error() != errB.Error() {
			t.Errorf("%s: errA=%q errB=%q", doc, errA, errB)
		}
	}
}
