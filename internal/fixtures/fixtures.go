// Package fixtures ships the demo datasets the embedded store is seeded with.
package fixtures

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"inkcircle/internal/model"
	"inkcircle/internal/tagstyle"
)

//go:embed data/*.toml
var files embed.FS

// DemoPassword signs in every fixture user.
const DemoPassword = "password123"

const (
	ThemeTech          = "tech"
	ThemeEntertainment = "entertainment"
)

type User struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	Email  string `toml:"email"`
	Avatar string `toml:"avatar"`
}

type Post struct {
	ID           string    `toml:"id"`
	AuthorID     string    `toml:"author_id"`
	Title        string    `toml:"title"`
	Excerpt      string    `toml:"excerpt"`
	Content      string    `toml:"content"`
	Tags         []string  `toml:"tags"`
	CoverImage   string    `toml:"cover_image"`
	State        string    `toml:"state"`
	ReadTime     string    `toml:"read_time"`
	LikeCount    int       `toml:"like_count"`
	CommentCount int       `toml:"comment_count"`
	Date         time.Time `toml:"date"`
}

type Comment struct {
	ID        string    `toml:"id"`
	PostID    string    `toml:"post_id"`
	AuthorID  string    `toml:"author_id"`
	Content   string    `toml:"content"`
	LikeCount int       `toml:"like_count"`
	Date      time.Time `toml:"date"`
}

// Dataset is one theme's users, posts and comments.
type Dataset struct {
	Theme      string    `toml:"theme"`
	Categories []string  `toml:"categories"`
	TagCatalog []string  `toml:"tag_catalog"`
	Users      []User    `toml:"users"`
	Posts      []Post    `toml:"posts"`
	Comments   []Comment `toml:"comments"`
}

// Themes lists the embedded dataset names.
func Themes() []string {
	entries, _ := files.ReadDir("data")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(out)
	return out
}

// Load decodes the dataset for theme.
func Load(theme string) (*Dataset, error) {
	raw, err := files.ReadFile("data/" + theme + ".toml")
	if err != nil {
		return nil, fmt.Errorf("unknown theme %q", theme)
	}

	var ds Dataset
	if _, err := toml.Decode(string(raw), &ds); err != nil {
		return nil, fmt.Errorf("decode theme %q: %w", theme, err)
	}
	if ds.Theme == "" {
		ds.Theme = theme
	}
	if len(ds.Categories) == 0 {
		ds.Categories = model.Categories
	}
	if len(ds.TagCatalog) == 0 {
		ds.TagCatalog = tagstyle.DefaultCatalog
	}
	return &ds, nil
}

// ToModel converts the fixture user. PasswordHashed is left for the caller.
func (u User) ToModel() model.User {
	out := model.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     strings.ToLower(u.Email),
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	out.UpdatedAt = out.CreatedAt
	if u.Avatar != "" {
		a := u.Avatar
		out.AvatarURL = &a
	}
	return out
}

func (p Post) ToModel() model.Post {
	out := model.Post{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Title:        p.Title,
		Excerpt:      p.Excerpt,
		Content:      strings.TrimSpace(p.Content),
		Tags:         append([]string{}, p.Tags...),
		State:        model.StateDraft,
		ReadTime:     p.ReadTime,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.Date.UTC(),
		UpdatedAt:    p.Date.UTC(),
	}
	if p.CoverImage != "" {
		c := p.CoverImage
		out.CoverImage = &c
	}
	if model.PostState(p.State) == model.StatePublished {
		out.State = model.StatePublished
		at := p.Date.UTC()
		out.PublishedAt = &at
	}
	return out
}

func (c Comment) ToModel() model.Comment {
	return model.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		LikeCount: c.LikeCount,
		CreatedAt: c.Date.UTC(),
	}
}
