package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go-grid-engine/internal/model"
	"go-grid-engine/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const peopleCSV = `name,age,city
Alice,30,Paris
Bob,25,London
Carol,35,Paris
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level=none"))
	err := root.Execute()
	return out.String(), err
}

func names(t *testing.T, out string) []string {
	t.Helper()
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r["name"].(string))
	}
	return got
}

func TestRunCommand(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	tests := map[string]struct {
		args []string
		want []string
	}{
		`no_criteria`: {
			want: []string{"Alice", "Bob", "Carol"},
		},
		`sort_desc`: {
			args: []string{"--sort", "age:desc"},
			want: []string{"Carol", "Alice", "Bob"},
		},
		`filter_then_sort`: {
			args: []string{"--filter", "city:equals:PARIS", "--sort", "age:desc"},
			want: []string{"Carol", "Alice"},
		},
		`filter_contains_shorthand`: {
			args: []string{"--filter", "name:o"},
			want: []string{"Bob", "Carol"},
		},
		`greater_than`: {
			args: []string{"--filter", "age:greaterThan:28"},
			want: []string{"Alice", "Carol"},
		},
		`second_page`: {
			args: []string{"--sort", "name", "--page-size", "2", "--page", "1"},
			want: []string{"Carol"},
		},
		`page_size_from_config_flag`: {
			args: []string{"--engine-page-size", "1"},
			want: []string{"Alice"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"run", path}, test.args...)...)
			require.NoError(t, err)
			require.Equal(t, test.want, names(t, out))
		})
	}
}

func TestRunCommandGroupedCSV(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	out, err := execute(t, "", "run", path, "--group", "city", "--format", "csv")
	require.NoError(t, err)

	want := `age,city,name
# city=Paris (2)
30,Paris,Alice
35,Paris,Carol
# city=London (1)
25,London,Bob
`
	require.Equal(t, want, out)
}

func TestRunCommandWritesOutFile(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)
	outPath := filepath.Join(t.TempDir(), "out.json")

	stdout, err := execute(t, "", "run", path, "--sort", "age", "-o", outPath, "--journal-enabled")
	require.NoError(t, err)
	require.Empty(t, stdout)

	body, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, []string{"Bob", "Alice", "Carol"}, names(t, string(body)))
}

func TestRunCommandErrors(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	tests := map[string]struct {
		args   []string
		errMsg string
	}{
		`missing_file`: {
			args:   []string{"run", filepath.Join(t.TempDir(), "nope.csv")},
			errMsg: "failed to open rows file",
		},
		`bad_sort_direction`: {
			args:   []string{"run", path, "--sort", "age:sideways"},
			errMsg: "direction must be asc or desc",
		},
		`bad_filter`: {
			args:   []string{"run", path, "--filter", "age"},
			errMsg: "want field:value",
		},
		`bad_format`: {
			args:   []string{"run", path, "--format", "xml"},
			errMsg: `invalid format "xml"`,
		},
		`bad_queue_size`: {
			args:   []string{"run", path, "--engine-queue-size", "0"},
			errMsg: "engine.queue-size must be at least 1",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "", test.args...)
			require.ErrorContains(t, err, test.errMsg)
		})
	}
}

func decodeResponses(t *testing.T, out string) []model.Response {
	t.Helper()
	var resps []model.Response
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var r model.Response
		require.NoError(t, dec.Decode(&r))
		resps = append(resps, r)
	}
	return resps
}

func TestReplayCommand(t *testing.T) {
	script := `{"id":"1","action":"init","data":[{"name":"Alice","age":30,"city":"Paris"},{"name":"Bob","age":25,"city":"London"},{"name":"Carol","age":35,"city":"Paris"}]}

{"id":"2","action":"filter","filter":[{"field":"city","value":"paris","operator":"equals"}]}
{"id":"3","action":"sort","sort":[{"field":"age","direction":"desc"}]}
{"id":"4","action":"filter","filter":[]}
`
	out, err := execute(t, script, "replay")
	require.NoError(t, err)

	resps := decodeResponses(t, out)
	require.Len(t, resps, 4)

	totals := make([]int, 0, len(resps))
	for i, r := range resps {
		require.Equal(t, string(rune('1'+i)), r.ID)
		totals = append(totals, r.Data.TotalRows)
	}
	require.Equal(t, []int{3, 2, 2, 3}, totals)

	// the sort from line 3 survives the filter being cleared
	require.Equal(t, "Carol", resps[3].Data.Rows[0]["name"])
	require.Equal(t, "Bob", resps[3].Data.Rows[2]["name"])
}

func TestReplayCommandWithDataFile(t *testing.T) {
	data := writeFile(t, "people.csv", peopleCSV)
	script := writeFile(t, "script.jsonl", `{"id":"a","action":"init","group":[{"field":"city"}]}`+"\n")

	out, err := execute(t, "", "replay", script, "--data", data)
	require.NoError(t, err)

	resps := decodeResponses(t, out)
	require.Len(t, resps, 1)
	require.Equal(t, 3, resps[0].Data.TotalRows)
	require.Equal(t, 5, resps[0].Data.DisplayRows)
	require.Equal(t, true, resps[0].Data.Rows[0][model.KeyIsGroupHeader])
}

func TestReplayCommandRejectsBadEnvelope(t *testing.T) {
	_, err := execute(t, "{\"action\":\"init\"}\nnot json\n", "replay")
	require.ErrorContains(t, err, "line 2: invalid request envelope")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "gridengine version dev")
}

func TestParseFilter(t *testing.T) {
	tests := map[string]struct {
		in   string
		want model.FilterCriterion
	}{
		`shorthand`: {
			in:   "name:al",
			want: model.FilterCriterion{Field: "name", Value: "al", Operator: model.OpContains},
		},
		`with_operator`: {
			in:   "age:lessThan:40",
			want: model.FilterCriterion{Field: "age", Value: "40", Operator: model.OpLessThan},
		},
		`value_with_colons`: {
			in:   "time:equals:10:30",
			want: model.FilterCriterion{Field: "time", Value: "10:30", Operator: model.OpEquals},
		},
		`unknown_operator_is_value`: {
			in:   "time:10:30",
			want: model.FilterCriterion{Field: "time", Value: "10:30", Operator: model.OpContains},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseFilter([]string{test.in})
			require.NoError(t, err)
			require.Equal(t, []model.FilterCriterion{test.want}, got)
		})
	}
}

func TestParseHighlight(t *testing.T) {
	got, err := parseHighlight([]string{"2:name"})
	require.NoError(t, err)
	require.Equal(t, []model.CellUpdate{{RowIndex: 2, Field: "name"}}, got)

	_, err = parseHighlight([]string{"x:name"})
	require.Error(t, err)
	_, err = parseHighlight([]string{"2"})
	require.Error(t, err)
}

func TestJournalCommand(t *testing.T) {
	data := writeFile(t, "people.csv", peopleCSV)
	dsn := filepath.Join(t.TempDir(), "journal.db")

	_, err := execute(t, "", "run", data, "--sort", "age:desc", "--journal-enabled", "--journal-dsn", dsn)
	require.NoError(t, err)

	out, err := execute(t, "", "journal", "--journal-dsn", dsn)
	require.NoError(t, err)
	var sessions []store.SessionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, "closed", sessions[0].Status)

	out, err = execute(t, "", "journal", sessions[0].ID, "--journal-dsn", dsn)
	require.NoError(t, err)
	var report sessionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, sessions[0].ID, report.Session.ID)
	require.Len(t, report.Requests, 1)
	require.Equal(t, model.ActionInit, report.Requests[0].Action)
	require.Equal(t, 3, report.Requests[0].TotalRows)
	require.Contains(t, report.Requests[0].Criteria, "desc")
	require.Empty(t, report.Errors)

	_, err = execute(t, "", "journal", "no-such-session", "--journal-dsn", dsn)
	require.ErrorContains(t, err, "is not in the journal")
}

func TestJournalCommandEmpty(t *testing.T) {
	out, err := execute(t, "", "journal")
	require.NoError(t, err)
	require.JSONEq(t, "[]", out)
}
