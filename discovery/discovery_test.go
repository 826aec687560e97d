package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteimg/content"
	"siteimg/profile"
)

func TestIsLocalImagePath(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/assets/a.png", true},
		{"/assets/a.JPG", true},
		{"/assets/a.jpeg", true},
		{"/assets/a.webp", false},
		{"/assets/a.svg", false},
		{"assets/a.png", false},
		{"//cdn/a.png", false},
		{"/\\cdn/a.png", false},
		{"http://x/a.png", false},
		{"/redirect?to=https://x/a.png", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalImagePath(tt.in))
		})
	}
}

func collect(t *testing.T, js string) *Accumulator {
	t.Helper()
	n, err := content.DecodeJSON([]byte(js))
	require.NoError(t, err)
	acc := NewAccumulator()
	Collect(n, acc)
	return acc
}

func TestRoleClassification(t *testing.T) {
	acc := collect(t, `{"heroImage": "/a.png"}`)
	assert.Equal(t, []string{"/a.png"}, acc.Hero.Items())
	assert.Zero(t, acc.Cover.Len())
	assert.Zero(t, acc.Photos.Len())

	acc = collect(t, `{"coverImage": "/a.png"}`)
	assert.Equal(t, []string{"/a.png"}, acc.Cover.Items())
	assert.Zero(t, acc.Hero.Len())

	acc = collect(t, `{"photos": ["/a.png", "/b.jpg"]}`)
	assert.Equal(t, []string{"/a.png", "/b.jpg"}, acc.Photos.Items())

	acc = collect(t, `[{"coverImage": "http://x/a.png"}, {"coverImage": "//cdn/a.png"}]`)
	assert.Zero(t, acc.Cover.Len())
}

func TestCollectNestedAndDeduplicated(t *testing.T) {
	acc := collect(t, `{
		"sections": [
			{"hero": {"heroImage": "/h.jpg"}},
			{"heroImage": "/h.jpg", "coverImage": "/h.jpg"}
		],
		"photos": "/not-a-list.png",
		"gallery": {"photos": ["/p1.jpg", "/p1.jpg", "/doc.pdf", 3, null]}
	}`)
	assert.Equal(t, []string{"/h.jpg"}, acc.Hero.Items())
	assert.Equal(t, []string{"/h.jpg"}, acc.Cover.Items(), "a path may sit in several roles")
	assert.Equal(t, []string{"/p1.jpg"}, acc.Photos.Items())
}

func TestWebpSources(t *testing.T) {
	acc := NewAccumulator("/assets/logo.png")
	acc.Cover.Add("/c.png")
	acc.Hero.Add("/h.png")
	acc.Hero.Add("/c.png")
	acc.Photos.Add("/p.png")

	assert.Equal(t, []string{"/c.png", "/h.png", "/assets/logo.png"}, acc.WebpSources())
	assert.True(t, acc.Role(profile.RoleLogo).Has("/assets/logo.png"))
	assert.True(t, acc.Role(profile.RolePhoto).Has("/p.png"))
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "editions", "2023.json"), `{"coverImage": "/assets/c23.png"}`)
	writeFile(t, filepath.Join(root, "editions", "2024", "index.json"), `{"photos": ["/assets/p.jpg"]}`)
	writeFile(t, filepath.Join(root, "pages", "home.yaml"), "heroImage: /assets/hero.jpg\n")
	writeFile(t, filepath.Join(root, "blog", "post.md"), "---\ncoverImage: /assets/post.png\n---\nbody\n")
	writeFile(t, filepath.Join(root, "notes.txt"), `{"coverImage": "/ignored.png"}`)

	acc := NewAccumulator()
	n, err := ScanDir(root, nil, acc)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.ElementsMatch(t, []string{"/assets/c23.png", "/assets/post.png"}, acc.Cover.Items())
	assert.Equal(t, []string{"/assets/hero.jpg"}, acc.Hero.Items())
	assert.Equal(t, []string{"/assets/p.jpg"}, acc.Photos.Items())

	acc = NewAccumulator()
	n, err = ScanDir(root, []string{".json"}, acc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestScanDirMissingRoot(t *testing.T) {
	acc := NewAccumulator()
	n, err := ScanDir(filepath.Join(t.TempDir(), "nope"), nil, acc)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, acc.Cover.Len())
}

func TestScanDirMalformedRecord(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.json"), `{"coverImage": `)

	_, err := ScanDir(root, nil, NewAccumulator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestEditionPhotos(t *testing.T) {
	public := t.TempDir()
	dir := filepath.Join(public, "assets", "editions", "2024")
	for _, name := range []string{"10.jpg", "2.jpg", "1.PNG", "notes.txt", "b.webp"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	got := EditionPhotos(public, DefaultEditionsDir, "2024")
	assert.Equal(t, []string{
		"/assets/editions/2024/1.PNG",
		"/assets/editions/2024/2.jpg",
		"/assets/editions/2024/10.jpg",
		"/assets/editions/2024/b.webp",
	}, got)

	assert.Nil(t, EditionPhotos(public, DefaultEditionsDir, "1999"))

	acc := NewAccumulator()
	added, err := AddEditionPhotos(public, DefaultEditionsDir, acc)
	require.NoError(t, err)
	assert.Equal(t, 3, added, "webp is listed for the gallery but not rasterized")
}

func TestEditionYearsMissing(t *testing.T) {
	years, err := EditionYears(t.TempDir(), DefaultEditionsDir)
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, NaturalLess("2.jpg", "10.jpg"))
	assert.False(t, NaturalLess("10.jpg", "2.jpg"))
	assert.True(t, NaturalLess("IMG_9.jpg", "img_10.jpg"))
	assert.True(t, NaturalLess("a", "ab"))
	assert.False(t, NaturalLess("a", "a"))
}
