package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type BlogRepository struct {
	db db.Querier
}

func NewBlogRepository(q db.Querier) *BlogRepository {
	return &BlogRepository{db: q}
}

// PostFilter selects blog posts. Category matches the category slug.
type PostFilter struct {
	Category      string
	Slug          string
	IncludeDrafts bool
	Limit         int
	Page          int
}

func (f PostFilter) normalize() PostFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}

// PostInput is the writable part of a blog post. Category is the category name.
type PostInput struct {
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Excerpt    string `json:"excerpt"`
	Content    string `json:"content"`
	Category   string `json:"category"`
	CoverImage string `json:"coverImage"`
	Status     string `json:"status"`
}

func (in PostInput) validate() (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = strings.TrimSpace(in.Category)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	switch {
	case in.Title == "":
		return in, model.Required("title")
	case in.Slug == "":
		return in, model.Required("slug")
	case in.Excerpt == "":
		return in, model.Required("excerpt")
	case strings.TrimSpace(in.Content) == "":
		return in, model.Required("content")
	case in.Category == "":
		return in, model.Required("category")
	}
	if in.CoverImage == "" {
		in.CoverImage = model.DefaultCoverImage
	}
	switch model.PostStatus(strings.TrimSpace(in.Status)) {
	case "", model.PostDraft:
		in.Status = string(model.PostDraft)
	case model.PostPublished:
		in.Status = string(model.PostPublished)
	default:
		return in, &model.ValidationError{Field: "status", Message: "Invalid status"}
	}
	return in, nil
}

const postColumns = `p.id::text, p.slug, p.title, p.excerpt, p.content, c.name, p.cover_image,
	p.status, p.published_at, p.created_at, p.updated_at`

func scanPost(row pgx.Row) (model.BlogPost, error) {
	var p model.BlogPost
	var status string
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.Content, &p.Category, &p.CoverImage, &status, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.BlogPost{}, err
	}
	p.Status = model.PostStatus(status)
	return p, nil
}

// List returns posts newest first plus the total matching count.
func (r *BlogRepository) List(ctx context.Context, f PostFilter) ([]model.BlogPost, int, error) {
	f = f.normalize()
	var where []string
	var args []any
	if !f.IncludeDrafts {
		where = append(where, "p.status = 'published'")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if f.Slug != "" {
		args = append(args, f.Slug)
		where = append(where, fmt.Sprintf("p.slug = $%d", len(args)))
	}
	from := " FROM blog_posts p JOIN blog_categories c ON c.id = p.category_id"
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*)"+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	sql := "SELECT " + postColumns + from +
		fmt.Sprintf(" ORDER BY p.published_at DESC NULLS LAST, p.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []model.BlogPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

func (r *BlogRepository) GetPublishedBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	p, err := scanPost(r.db.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p JOIN blog_categories c ON c.id = p.category_id
		WHERE p.slug = $1 AND p.status = 'published'
	`, slug))
	if db.IsNotFound(err) {
		return model.BlogPost{}, model.ErrNotFound
	}
	return p, err
}

// resolveID accepts either a post id or a slug.
func (r *BlogRepository) resolveID(ctx context.Context, slugOrID string) (string, error) {
	var id string
	var err error
	if _, perr := uuid.Parse(slugOrID); perr == nil {
		err = r.db.QueryRow(ctx, `SELECT id::text FROM blog_posts WHERE id = $1`, slugOrID).Scan(&id)
	} else {
		err = r.db.QueryRow(ctx, `SELECT id::text FROM blog_posts WHERE slug = $1`, slugOrID).Scan(&id)
	}
	if db.IsNotFound(err) {
		return "", model.ErrNotFound
	}
	return id, err
}

func (r *BlogRepository) CategoryByName(ctx context.Context, name string) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRow(ctx, `
		SELECT id::text, name, slug FROM blog_categories WHERE lower(name) = lower($1)
	`, strings.TrimSpace(name)).Scan(&c.ID, &c.Name, &c.Slug)
	if db.IsNotFound(err) {
		return model.Category{}, &model.ValidationError{Field: "category", Message: "Invalid category"}
	}
	return c, err
}

func (r *BlogRepository) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id::text, name, slug FROM blog_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *BlogRepository) Create(ctx context.Context, in PostInput, authorID string) (string, error) {
	in, err := in.validate()
	if err != nil {
		return "", err
	}
	cat, err := r.CategoryByName(ctx, in.Category)
	if err != nil {
		return "", err
	}
	var id string
	err = r.db.QueryRow(ctx, `
		INSERT INTO blog_posts (title, slug, excerpt, content, category_id, cover_image, status, author_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, CASE WHEN $7 = 'published' THEN now() END)
		RETURNING id::text
	`, in.Title, in.Slug, in.Excerpt, in.Content, cat.ID, in.CoverImage, in.Status, authorID).Scan(&id)
	if db.IsUniqueViolation(err) {
		return "", fmt.Errorf("slug %q: %w", in.Slug, ErrConflict)
	}
	return id, err
}

// Update replaces the post. published_at is stamped the first time the
// post becomes published and kept afterwards.
func (r *BlogRepository) Update(ctx context.Context, slugOrID string, in PostInput) error {
	in, err := in.validate()
	if err != nil {
		return err
	}
	id, err := r.resolveID(ctx, slugOrID)
	if err != nil {
		return err
	}
	cat, err := r.CategoryByName(ctx, in.Category)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		UPDATE blog_posts
		SET title = $2, slug = $3, excerpt = $4, content = $5, category_id = $6, cover_image = $7,
			status = $8,
			published_at = CASE WHEN $8 = 'published' THEN COALESCE(published_at, now()) ELSE published_at END,
			updated_at = now()
		WHERE id = $1
	`, id, in.Title, in.Slug, in.Excerpt, in.Content, cat.ID, in.CoverImage, in.Status)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("slug %q: %w", in.Slug, ErrConflict)
	}
	return err
}

func (r *BlogRepository) Delete(ctx context.Context, slugOrID string) error {
	id, err := r.resolveID(ctx, slugOrID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	return err
}

// SetCover points the post at an uploaded image.
func (r *BlogRepository) SetCover(ctx context.Context, slugOrID, url string) error {
	id, err := r.resolveID(ctx, slugOrID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `UPDATE blog_posts SET cover_image = $2, updated_at = now() WHERE id = $1`, id, url)
	return err
}
