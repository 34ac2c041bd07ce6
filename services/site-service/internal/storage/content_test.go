package storage

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func validPost() PostInput {
	return PostInput{
		Title:    "Registering a company",
		Slug:     "registering-a-company",
		Excerpt:  "What founders need to know.",
		Content:  "Body",
		Category: "Business Law",
	}
}

func TestBlogCreateDefaults(t *testing.T) {
	mock := newPool(t)
	repo := NewBlogRepository(mock)

	mock.ExpectQuery("FROM blog_categories WHERE").WithArgs("Business Law").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug"}).AddRow("c-1", "Business Law", "business-law"))
	mock.ExpectQuery("INSERT INTO blog_posts").
		WithArgs("Registering a company", "registering-a-company", "What founders need to know.", "Body", "c-1", model.DefaultCoverImage, "draft", "admin-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("p-1"))

	id, err := repo.Create(context.Background(), validPost(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogCreateInvalidCategory(t *testing.T) {
	mock := newPool(t)
	repo := NewBlogRepository(mock)

	mock.ExpectQuery("FROM blog_categories WHERE").WithArgs("Business Law").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Create(context.Background(), validPost(), "")
	v, ok := model.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid category", v.Message)
}

func TestBlogValidation(t *testing.T) {
	in := validPost()
	in.Excerpt = ""
	_, err := in.validate()
	v, ok := model.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "excerpt", v.Field)

	in = validPost()
	in.Status = "archived"
	_, err = in.validate()
	v, ok = model.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "status", v.Field)
}

func TestBlogDeleteBySlug(t *testing.T) {
	mock := newPool(t)
	repo := NewBlogRepository(mock)

	mock.ExpectQuery("FROM blog_posts WHERE slug").WithArgs("old-post").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("p-9"))
	mock.ExpectExec("DELETE FROM blog_posts").WithArgs("p-9").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), "old-post"))

	mock.ExpectQuery("FROM blog_posts WHERE slug").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	require.ErrorIs(t, repo.Delete(context.Background(), "missing"), model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostFilterPaging(t *testing.T) {
	f := PostFilter{}.normalize()
	assert.Equal(t, DefaultPageSize, f.Limit)
	assert.Equal(t, 1, f.Page)
	f = PostFilter{Limit: 1000, Page: 3}.normalize()
	assert.Equal(t, MaxPageSize, f.Limit)
	assert.Equal(t, 3, f.Page)
}

func TestBlockedDates(t *testing.T) {
	mock := newPool(t)
	repo := NewBlockedDateRepository(mock)
	date := model.Date{Year: 2025, Month: 12, Day: 25}

	mock.ExpectExec("INSERT INTO blocked_dates").WithArgs(pgxmock.AnyArg(), "Christmas").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Add(context.Background(), date, "Christmas"))

	mock.ExpectExec("DELETE FROM blocked_dates").WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, repo.Remove(context.Background(), date), model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpsert(t *testing.T) {
	mock := newPool(t)
	repo := NewAdminRepository(mock)

	mock.ExpectQuery("INSERT INTO admin_users").WithArgs("admin", "admin@example.com", "hash", "admin").
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow("a-1", true))

	id, inserted, err := repo.Upsert(context.Background(), "admin", "admin@example.com", "hash", "admin")
	require.NoError(t, err)
	assert.Equal(t, "a-1", id)
	assert.True(t, inserted)
}

func TestAdminByUsernameNotFound(t *testing.T) {
	mock := newPool(t)
	repo := NewAdminRepository(mock)

	mock.ExpectQuery("FROM admin_users").WithArgs("ghost").WillReturnError(pgx.ErrNoRows)
	_, err := repo.ByUsername(context.Background(), " ghost ")
	require.ErrorIs(t, err, model.ErrNotFound)
}
