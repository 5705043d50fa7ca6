package service

import (
	"context"

	"mic/internal/sanctions/models"
)

//go:generate mockgen -source=lists.go -destination=../mocks/lists-mocks.go -package=mocks Lists

// Lists searches sanctions reference data by case-insensitive name substring.
type Lists interface {
	SearchOFAC(ctx context.Context, name string, limit int) ([]models.Match, error)
	SearchBIS(ctx context.Context, name string, limit int) ([]models.Match, error)
}
