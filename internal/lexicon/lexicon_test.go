package lexicon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSceneOrder(t *testing.T) {
	tables := Default()
	want := []string{"拒绝", "冲突", "暗示", "情绪", "请求"}
	for i, name := range want {
		assert.Equal(t, name, tables.Scenes[i].Name, "scene %d", i)
	}
	assert.Equal(t, "开心", tables.Emotions[0].Name)
	assert.Equal(t, "无聊", tables.Emotions[len(tables.Emotions)-1].Name)
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Scenes[0].Keywords[0] = "changed"
	b := Default()
	assert.Equal(t, "算了", b.Scenes[0].Keywords[0])
}

func TestMergeKeepsOrderAndAppends(t *testing.T) {
	base := Default()
	merged := base.Merge(&Tables{
		Scenes: []Category{
			{Name: "拒绝", Keywords: []string{"算了", "再议"}},
			{Name: "邀请", Keywords: []string{"一起去"}},
		},
		Extreme: []string{"活不下去"},
	})

	require.Equal(t, "拒绝", merged.Scenes[0].Name)
	kws := merged.Scenes[0].Keywords
	assert.Equal(t, "再议", kws[len(kws)-1])
	assert.Equal(t, 1, countOf(kws, "算了"), "existing keyword must not be duplicated")
	assert.Equal(t, "邀请", merged.Scenes[len(merged.Scenes)-1].Name)
	assert.Contains(t, merged.Extreme, "活不下去")

	// base is untouched
	assert.Len(t, base.Scenes, len(Default().Scenes))
}

func TestParseNormalizesUserKeywords(t *testing.T) {
	tables, err := Parse([]byte(`
scenes:
  - name: 请求
    keywords: ["PLEASE", "ｐｌｚ"]
`))
	require.NoError(t, err)
	kws := tables.Scene("请求")
	assert.Contains(t, kws, "please")
	assert.Contains(t, kws, "plz")
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("scenes: [ {name: "))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Hello", "hello"},
		{"ＡＢＣ１２３", "abc123"},
		{"算了，下次吧", "算了,下次吧"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFileCacheRefresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extreme: [\"撑不住了\"]\n"), 0644))

	c := NewFileCache(path)
	assert.Contains(t, c.Load().Extreme, "撑不住了")

	require.NoError(t, os.WriteFile(path, []byte("extreme: [\"活不下去\"]\n"), 0644))
	require.NoError(t, c.Refresh())
	assert.Contains(t, c.Load().Extreme, "活不下去")
	assert.NotContains(t, c.Load().Extreme, "撑不住了")

	require.NoError(t, os.WriteFile(path, []byte("extreme: ["), 0644))
	assert.Error(t, c.Refresh())
	assert.Contains(t, c.Load().Extreme, "活不下去", "failed refresh keeps previous tables")
}

func TestFileCacheMissingFileUsesDefaults(t *testing.T) {
	c := NewFileCache(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, len(Default().Scenes), len(c.Load().Scenes))
}

func TestCacheConcurrentReaders(t *testing.T) {
	c := NewCache(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Load().Scene("拒绝")
			}
		}()
	}
	for j := 0; j < 10; j++ {
		c.Store(Default())
	}
	wg.Wait()
}

func countOf(words []string, w string) int {
	n := 0
	for _, x := range words {
		if x == w {
			n++
		}
	}
	return n
}
