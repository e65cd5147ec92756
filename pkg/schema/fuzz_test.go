package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/calvinalkan/cms/pkg/schema"
)

// -----------------------------------------------------------------------------
// FuzzValidate_Total
//
// Property: every decodable document yields either a value or a
// *ValidationError, never a panic. An accepted value validates again to
// itself, and every issue path is a JSON Pointer.
// -----------------------------------------------------------------------------

func FuzzValidate_Total(f *testing.F) {
	f.Add([]byte(`{"title":"Hi","tags":["x"],"meta":{"author":"a"}}`))
	f.Add([]byte(`{"title":42,"tags":[1,null],"meta":[]}`))
	f.Add([]byte(`{"meta":{"author":null,"a/b~c":"x"}}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`"string"`))
	f.Add([]byte(`{"tags":"not an array","body":{}}`))

	v := mustCompile(f, schema.Object(map[string]*schema.Shape{
		"title": schema.String(),
		"body":  schema.Text().Opt(),
		"tags":  schema.StringArray(),
		"meta": schema.Object(map[string]*schema.Shape{
			"author": schema.String().Opt(),
			"a/b~c":  schema.String().Opt(),
		}).Opt(),
	}))

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := schema.DecodeJSON(data)
		if err != nil {
			return
		}

		out, err := v.Validate(doc)
		if err != nil {
			var verr *schema.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is %T, want *schema.ValidationError: %v", err, err)
			}

			if len(verr.Issues) == 0 {
				t.Fatal("validation error without issues")
			}

			for _, issue := range verr.Issues {
				if issue.Path != "" && !strings.HasPrefix(issue.Path, "/") {
					t.Fatalf("issue path %q is not a JSON Pointer", issue.Path)
				}
			}

			return
		}

		encoded, err := json.Marshal(out)
		if err != nil {
			t.Fatalf("encoding accepted value: %v", err)
		}

		again, err := v.ValidateJSON(encoded)
		if err != nil {
			t.Fatalf("accepted value failed to validate again: %v\nvalue: %s", err, encoded)
		}

		reencoded, _ := json.Marshal(again)
		if string(reencoded) != string(encoded) {
			t.Fatalf("validation not idempotent\nfirst:  %s\nsecond: %s", encoded, reencoded)
		}
	})
}
