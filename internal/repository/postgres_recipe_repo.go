package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/recipebox/internal/model"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
// すべての読み書きクエリに所有者条件を含める。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

const recipeColumns = `r.id, r.user_id, u.username, r.title, r.description, r.ingredients,
	r.instructions, r.image_url, r.external_link, r.cuisine_type, r.created_at, r.updated_at`

func scanRecipe(row interface{ Scan(...any) error }) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	err := row.Scan(
		&recipe.ID, &recipe.UserID, &recipe.OwnerUsername, &recipe.Title, &recipe.Description,
		&recipe.Ingredients, &recipe.Instructions, &recipe.ImageURL, &recipe.ExternalLink,
		&recipe.CuisineType, &recipe.CreatedAt, &recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

// FindByIDAndOwner は指定IDかつ指定所有者のレシピを取得する。
// 見つからない場合（他ユーザー所有を含む）はnilを返す。
func (r *PostgresRecipeRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Recipe, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+`
		 FROM recipes r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.id = $1 AND r.user_id = $2`,
		id, ownerID,
	)

	recipe, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	return recipe, nil
}

// ListByOwner は指定所有者のレシピ一覧をcreated_at降順で返す。
func (r *PostgresRecipeRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recipeColumns+`
		 FROM recipes r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.user_id = $1
		 ORDER BY r.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []*model.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return recipes, nil
}

// Create はレシピを作成する。
func (r *PostgresRecipeRepo) Create(ctx context.Context, recipe *model.Recipe) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recipes (id, user_id, title, description, ingredients, instructions,
			image_url, external_link, cuisine_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		recipe.ID, recipe.UserID, recipe.Title, recipe.Description, recipe.Ingredients,
		recipe.Instructions, recipe.ImageURL, recipe.ExternalLink, recipe.CuisineType,
		recipe.CreatedAt, recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Update はレシピを更新する。所有者条件を含むWHERE句で更新する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresRecipeRepo) Update(ctx context.Context, recipe *model.Recipe) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE recipes
		 SET title = $1, description = $2, ingredients = $3, instructions = $4,
			 image_url = $5, external_link = $6, cuisine_type = $7, updated_at = $8
		 WHERE id = $9 AND user_id = $10`,
		recipe.Title, recipe.Description, recipe.Ingredients, recipe.Instructions,
		recipe.ImageURL, recipe.ExternalLink, recipe.CuisineType, recipe.UpdatedAt,
		recipe.ID, recipe.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update recipe: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByIDAndOwner は指定IDかつ指定所有者のレシピを削除する。
// 削除対象が存在しない場合はfalseを返す。
func (r *PostgresRecipeRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM recipes WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete recipe: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
