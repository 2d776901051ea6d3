package normalizer

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanCode_FenceAgnostic(t *testing.T) {
	fenced := CleanCode("```plantuml\n@startuml\nA->B\n@enduml\n```")
	bare := CleanCode("@startuml\nA->B\n@enduml")

	assert.Equal(t, bare, fenced)
	assert.Equal(t, "@startuml\nA->B\n@enduml", fenced)
}

func TestCleanCode_Cases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"json tag", "```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"no tag", "```\nCREATE TABLE a();\n```", "CREATE TABLE a();"},
		{"mermaid", "  ```mermaid\nclassDiagram\n```  ", "classDiagram"},
		{"unterminated", "```yaml\nopenapi: 3.1.0", "openapi: 3.1.0"},
		{"fence inside text", "see ```sql\nSELECT 1\n``` above", "see \nSELECT 1\n above"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCode(tt.in))
		})
	}
}

func TestCleanCode_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	fragments := []string{"```", "```plantuml", "```json\n", "`", "``", "\n", " ", "@startuml", "A->B", "{", "}", "x"}

	properties.Property("clean is idempotent", prop.ForAll(
		func(idx []int) bool {
			var b strings.Builder
			for _, i := range idx {
				b.WriteString(fragments[i])
			}
			once := CleanCode(b.String())
			return CleanCode(once) == once && !strings.Contains(once, "```")
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.Property("clean is idempotent on arbitrary strings", prop.ForAll(
		func(s string) bool {
			once := CleanCode(s)
			return CleanCode(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestExtractStructured_Success(t *testing.T) {
	raw := "```json\n{\"projectName\":\"Library\",\"classes\":[{\"className\":\"Book\",\"attributes\":[{\"name\":\"isbn\",\"type\":\"String\",\"nature\":\"Identifying\",\"required\":true}],\"relationships\":[]}]}\n```"

	out := ExtractStructured(raw, "ignored")
	require.False(t, out.Degraded)
	assert.Equal(t, "Library", out.Result.ProjectName)
	require.Len(t, out.Result.Classes, 1)
	assert.Equal(t, "Book", out.Result.Classes[0].ClassName)
	assert.Equal(t, "Identifying", out.Result.Classes[0].Attributes[0].Nature)
	assert.Empty(t, out.Result.Error)
	assert.Nil(t, out.Result.RawSnippet)
}

func TestExtractStructured_FillsMissingProjectName(t *testing.T) {
	out := ExtractStructured(`{"classes":null}`, "Shop")
	require.False(t, out.Degraded)
	assert.Equal(t, "Shop", out.Result.ProjectName)
	assert.NotNil(t, out.Result.Classes)
	assert.Empty(t, out.Result.Classes)
}

func TestExtractStructured_LenientRequiredFlag(t *testing.T) {
	raw := `{"projectName":"Lib","classes":[{"className":"Book","attributes":[` +
		`{"name":"isbn","type":"String","nature":"Identifying","required":"true"},` +
		`{"name":"title","type":"String","required":1},` +
		`{"name":"notes","type":"String","required":"maybe"}],"relationships":[]}]}`

	out := ExtractStructured(raw, "Lib")

	require.False(t, out.Degraded, "%v", out.ParseErr)
	attrs := out.Result.Classes[0].Attributes
	require.Len(t, attrs, 3)
	assert.True(t, attrs[0].Required)
	assert.Equal(t, "Identifying", attrs[0].Nature)
	assert.True(t, attrs[1].Required)
	assert.False(t, attrs[2].Required)
}

func TestExtractStructured_Degraded(t *testing.T) {
	out := ExtractStructured("I cannot comply", "Shop")

	require.True(t, out.Degraded)
	assert.Error(t, out.ParseErr)
	assert.Equal(t, "Shop", out.Result.ProjectName)
	assert.Empty(t, out.Result.Classes)
	assert.NotNil(t, out.Result.Classes)
	assert.Equal(t, ParseFailureMessage, out.Result.Error)
	require.NotNil(t, out.Result.RawSnippet)
	assert.Equal(t, "I cannot comply", *out.Result.RawSnippet)
}

func TestExtractStructured_DegradedSnippetIsBounded(t *testing.T) {
	raw := strings.Repeat("é", 150) + strings.Repeat("z", 150)

	out := ExtractStructured(raw, "")
	require.True(t, out.Degraded)
	assert.Equal(t, strings.Repeat("é", 150)+strings.Repeat("z", 50), *out.Result.RawSnippet)
}

func TestExtractStructured_NonObjectJSON(t *testing.T) {
	for _, raw := range []string{"null", "[]", `"text"`, "42", "{broken"} {
		out := ExtractStructured(raw, "p")
		assert.True(t, out.Degraded, raw)
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "", Snippet("", 200))
	assert.Equal(t, "abc", Snippet("abc", 200))
	assert.Equal(t, "ab", Snippet("abc", 2))
}
