package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBoolUnmarshal(t *testing.T) {
	// 历史数据中 is_reel 存在布尔、字符串、缺失三种写法，缺失视为 false
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"布尔 true", `{"is_reel": true}`, true},
		{"布尔 false", `{"is_reel": false}`, false},
		{"字符串 true", `{"is_reel": "true"}`, true},
		{"字符串 false", `{"is_reel": "false"}`, false},
		{"缺失", `{}`, false},
		{"null", `{"is_reel": null}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc struct {
				IsReel FlexBool `json:"is_reel"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &doc))
			assert.Equal(t, tt.want, doc.IsReel.Bool())
		})
	}
}

func TestFlexBoolUnmarshalRejectsGarbage(t *testing.T) {
	var b FlexBool
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &b))
	assert.Error(t, json.Unmarshal([]byte(`42`), &b))
}

func TestFlexBoolMarshalIsPlainBool(t *testing.T) {
	data, err := json.Marshal(FlexBool(true))
	require.NoError(t, err)
	assert.Equal(t, "true", string(data))
}

func TestFlexBoolScan(t *testing.T) {
	var b FlexBool

	require.NoError(t, b.Scan(true))
	assert.True(t, b.Bool())

	require.NoError(t, b.Scan(nil))
	assert.False(t, b.Bool())

	require.NoError(t, b.Scan("t"))
	assert.True(t, b.Bool())

	require.NoError(t, b.Scan([]byte("false")))
	assert.False(t, b.Bool())

	assert.Error(t, b.Scan(3.14))
}

func TestContentItemHasEmbedding(t *testing.T) {
	item := ContentItem{}
	assert.False(t, item.HasEmbedding())
}
