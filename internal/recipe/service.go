// Package recipe はレシピ管理のドメインロジックを提供する。
package recipe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/recipebox/internal/model"
	"github.com/hitoshi/recipebox/internal/repository"
	"github.com/hitoshi/recipebox/internal/security"
)

const (
	maxTitleLength   = 255
	maxURLLength     = 500
	maxCuisineLength = 100
)

// Input はレシピ作成・更新の入力値。
// nilのフィールドは「未指定」を表し、部分更新では既存値を維持する。
type Input struct {
	Title        *string
	Description  *string
	Ingredients  *string
	Instructions *string
	ImageURL     *string
	ExternalLink *string
	CuisineType  *string
}

// Service はレシピ管理のサービス層。
// すべての取得・更新・削除は所有者のスコープ内でのみ行われる。
type Service struct {
	recipeRepo repository.RecipeRepository
	sanitizer  security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(recipeRepo repository.RecipeRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		recipeRepo: recipeRepo,
		sanitizer:  sanitizer,
	}
}

// List は所有レシピの一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Recipe, error) {
	recipes, err := s.recipeRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// Get は所有レシピを1件取得する。
// 他ユーザー所有のレシピは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, ownerID, recipeID string) (*model.Recipe, error) {
	if _, err := uuid.Parse(recipeID); err != nil {
		return nil, model.NewRecipeNotFoundError(recipeID)
	}

	recipe, err := s.recipeRepo.FindByIDAndOwner(ctx, recipeID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	if recipe == nil {
		return nil, model.NewRecipeNotFoundError(recipeID)
	}
	return recipe, nil
}

// Create はレシピを作成する。所有者はサーバー側で強制的に設定される。
func (s *Service) Create(ctx context.Context, ownerID, ownerUsername string, input Input) (*model.Recipe, error) {
	recipe := &model.Recipe{
		ID:            uuid.New().String(),
		UserID:        ownerID,
		OwnerUsername: ownerUsername,
	}
	s.apply(recipe, input)

	if fields := s.validate(recipe); len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	return recipe, nil
}

// Update は所有レシピを更新する。
// requireAllがtrueの場合は全必須フィールドの指定を要求する（全体更新）。
// falseの場合は指定されたフィールドのみを差し替える（部分更新）。
func (s *Service) Update(ctx context.Context, ownerID, recipeID string, input Input, requireAll bool) (*model.Recipe, error) {
	recipe, err := s.Get(ctx, ownerID, recipeID)
	if err != nil {
		return nil, err
	}

	if requireAll {
		fields := map[string][]string{}
		if input.Title == nil {
			fields["title"] = append(fields["title"], "タイトルは必須です。")
		}
		if input.Ingredients == nil {
			fields["ingredients"] = append(fields["ingredients"], "材料は必須です。")
		}
		if input.Instructions == nil {
			fields["instructions"] = append(fields["instructions"], "作り方は必須です。")
		}
		if len(fields) > 0 {
			return nil, model.NewValidationError(fields)
		}
	}

	s.apply(recipe, input)

	if fields := s.validate(recipe); len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	recipe.UpdatedAt = time.Now()

	updated, err := s.recipeRepo.Update(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}
	if !updated {
		return nil, model.NewRecipeNotFoundError(recipeID)
	}

	return recipe, nil
}

// Delete は所有レシピを削除する。
func (s *Service) Delete(ctx context.Context, ownerID, recipeID string) error {
	if _, err := uuid.Parse(recipeID); err != nil {
		return model.NewRecipeNotFoundError(recipeID)
	}

	deleted, err := s.recipeRepo.DeleteByIDAndOwner(ctx, recipeID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if !deleted {
		return model.NewRecipeNotFoundError(recipeID)
	}
	return nil
}

// apply は指定されたフィールドのみをレシピに反映する。
// テキストフィールドはHTMLタグを除去してから設定する。
func (s *Service) apply(recipe *model.Recipe, input Input) {
	if input.Title != nil {
		recipe.Title = s.sanitizer.Sanitize(*input.Title)
	}
	if input.Description != nil {
		recipe.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Ingredients != nil {
		recipe.Ingredients = s.sanitizer.Sanitize(*input.Ingredients)
	}
	if input.Instructions != nil {
		recipe.Instructions = s.sanitizer.Sanitize(*input.Instructions)
	}
	if input.ImageURL != nil {
		recipe.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.ExternalLink != nil {
		recipe.ExternalLink = strings.TrimSpace(*input.ExternalLink)
	}
	if input.CuisineType != nil {
		recipe.CuisineType = s.sanitizer.Sanitize(*input.CuisineType)
	}
}

// validate は反映後のレシピ全体を検証する。
func (s *Service) validate(recipe *model.Recipe) map[string][]string {
	fields := map[string][]string{}

	switch {
	case recipe.Title == "":
		fields["title"] = append(fields["title"], "タイトルは必須です。")
	case len(recipe.Title) > maxTitleLength:
		fields["title"] = append(fields["title"], "タイトルは255文字以内で入力してください。")
	}

	if recipe.Ingredients == "" {
		fields["ingredients"] = append(fields["ingredients"], "材料は必須です。")
	}
	if recipe.Instructions == "" {
		fields["instructions"] = append(fields["instructions"], "作り方は必須です。")
	}

	if msg := validateOptionalURL(recipe.ImageURL); msg != "" {
		fields["image_url"] = append(fields["image_url"], msg)
	}
	if msg := validateOptionalURL(recipe.ExternalLink); msg != "" {
		fields["external_link"] = append(fields["external_link"], msg)
	}

	if len(recipe.CuisineType) > maxCuisineLength {
		fields["cuisine_type"] = append(fields["cuisine_type"], "料理の種類は100文字以内で入力してください。")
	}

	return fields
}

// validateOptionalURL は任意URLフィールドを検証する。空文字列は許容する。
func validateOptionalURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if len(rawURL) > maxURLLength {
		return "URLは500文字以内で入力してください。"
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "有効なURLを入力してください。"
	}
	return ""
}
