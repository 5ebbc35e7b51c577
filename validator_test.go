package dispatcher_test

import (
	"encoding/json"
	"testing"

	"github.com/ZutrixPog/llmdispatch"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		desc string
		raw  string
		want string
		err  error
	}{
		{
			desc: "bare object",
			raw:  `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			desc: "object after anchor with surrounding prose",
			raw:  "好的，结果如下。输入：{\"task_id\": \"T0001\", \"ok\": true} 以上。",
			want: `{"task_id": "T0001", "ok": true}`,
		},
		{
			desc: "anchor skips earlier braces",
			raw:  "示例 {\"ignored\": 1} 输入：{\"kept\": 2}",
			want: `{"kept": 2}`,
		},
		{
			desc: "nested objects",
			raw:  `prefix {"a": {"b": {"c": []}}} suffix {"x": 1}`,
			want: `{"a": {"b": {"c": []}}}`,
		},
		{
			desc: "braces inside strings do not count",
			raw:  `note: {"text": "a } and a { inside", "n": 1} trailing`,
			want: `{"text": "a } and a { inside", "n": 1}`,
		},
		{
			desc: "escaped quote inside string",
			raw:  `输入：{"text": "say \"}\" loudly", "n": 2}`,
			want: `{"text": "say \"}\" loudly", "n": 2}`,
		},
		{
			desc: "escaped backslash before closing quote",
			raw:  `{"path": "C:\\"} tail }`,
			want: `{"path": "C:\\"}`,
		},
		{
			desc: "nothing after anchor falls back to whole text",
			raw:  `{"early": true} then 输入：nothing here`,
			want: `{"early": true}`,
		},
		{
			desc: "no brace at all",
			raw:  "I cannot help with that.",
			err:  dispatcher.ErrNoJSONObject,
		},
		{
			desc: "unterminated object",
			raw:  `输入：{"a": {"b": 1}`,
			err:  dispatcher.ErrUnterminatedJSON,
		},
		{
			desc: "unterminated string swallows closing brace",
			raw:  `{"a": "open}`,
			err:  dispatcher.ErrUnterminatedJSON,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := dispatcher.ExtractJSON(tc.raw, dispatcher.DefaultAnchor)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.ErrorIs(t, err, dispatcher.ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestJSONValidator(t *testing.T) {
	cases := []struct {
		desc  string
		raw   string
		want  string
		valid bool
	}{
		{
			desc:  "whole response is json",
			raw:   "  {\"task_id\": \"T1\"}\n",
			want:  `{"task_id": "T1"}`,
			valid: true,
		},
		{
			desc:  "json embedded after anchor",
			raw:   "分析完成。输入：{\"task_id\": \"T2\", \"items\": [1, 2]}\n谢谢",
			want:  `{"task_id": "T2", "items": [1, 2]}`,
			valid: true,
		},
		{
			desc: "balanced but not json",
			raw:  "输入：{task_id: T3}",
		},
		{
			desc: "plain text",
			raw:  "no payload",
		},
		{
			desc: "empty response",
			raw:  "",
		},
	}

	v := dispatcher.NewJSONValidator(dispatcher.DefaultAnchor)
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := v.Validate(tc.raw)
			if !tc.valid {
				require.ErrorIs(t, err, dispatcher.ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			require.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestJSONValidatorRoundTrip(t *testing.T) {
	payloads := []map[string]any{
		{"task_id": "T0001", "per_bad_comparisons": []any{}},
		{"text": `quote " and brace } and backslash \`},
		{"nested": map[string]any{"open": "{", "close": "}"}},
	}

	v := dispatcher.NewJSONValidator(dispatcher.DefaultAnchor)
	for _, p := range payloads {
		data, err := json.Marshal(p)
		require.NoError(t, err)

		raw := "模型回答：\n输入：" + string(data) + "\n以上为结果 {not json}"
		got, err := v.Validate(raw)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(got, &decoded))
		require.Equal(t, p, decoded)
	}
}
