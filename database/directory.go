package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/internal/cache"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultCacheTTL = 5 * time.Minute

func (d Datasource) cacheTTL() time.Duration {
	if d.CacheTTL > 0 {
		return d.CacheTTL
	}
	return defaultCacheTTL
}

// invalidate drops a cached list. A failure only delays visibility until the entry expires.
func (d Datasource) invalidate(ctx context.Context, key string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Delete(ctx, key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("failed to invalidate directory cache")
	}
}

func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Creating account")
	defer span.End()

	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = time.Now().UTC()
	account.Name = strings.TrimSpace(account.Name)
	if account.Currency == "" {
		account.Currency = model.BaseCurrency
	}
	if account.AccountType == "" {
		account.AccountType = "savings"
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO passbook.accounts (account_id, user_id, name, account_type, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, account.AccountID, account.UserID, account.Name, account.AccountType, account.Currency, account.CreatedAt)
	if err != nil {
		return account, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}
	d.invalidate(ctx, cache.AccountsKey(account.UserID))
	return account, nil
}

func (d Datasource) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching account")
	defer span.End()

	account := &model.Account{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, user_id, name, account_type, currency, created_at
		FROM passbook.accounts WHERE account_id = $1
	`, id).Scan(&account.AccountID, &account.UserID, &account.Name, &account.AccountType, &account.Currency, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}
	return account, nil
}

func (d Datasource) queryAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT account_id, user_id, name, account_type, currency, created_at
		FROM passbook.accounts WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list accounts", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.AccountID, &a.UserID, &a.Name, &a.AccountType, &a.Currency, &a.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListAccounts returns the user's account directory, served from the cache when one is configured.
func (d Datasource) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Listing accounts")
	defer span.End()

	if d.Cache == nil {
		return d.queryAccounts(ctx, userID)
	}
	var accounts []model.Account
	err := d.Cache.Once(ctx, cache.AccountsKey(userID), &accounts, d.cacheTTL(), func() (interface{}, error) {
		return d.queryAccounts(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (d Datasource) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Creating category")
	defer span.End()

	if !category.CategoryType.Valid() {
		return category, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown category type %q", category.CategoryType), nil)
	}
	category.CategoryID = model.GenerateUUIDWithSuffix("cat")
	category.CreatedAt = time.Now().UTC()
	category.Name = strings.TrimSpace(category.Name)

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO passbook.categories (category_id, user_id, name, category_type, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, category.CategoryID, category.UserID, category.Name, category.CategoryType, category.ParentID, category.CreatedAt)
	if err != nil {
		return category, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create category", err)
	}
	d.invalidate(ctx, cache.CategoriesKey(category.UserID))
	return category, nil
}

func (d Datasource) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching category")
	defer span.End()

	c := &model.Category{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT category_id, user_id, name, category_type, parent_id, created_at
		FROM passbook.categories WHERE category_id = $1
	`, id).Scan(&c.CategoryID, &c.UserID, &c.Name, &c.CategoryType, &c.ParentID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Category with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve category", err)
	}
	return c, nil
}

func (d Datasource) queryCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT category_id, user_id, name, category_type, parent_id, created_at
		FROM passbook.categories WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list categories", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.CategoryID, &c.UserID, &c.Name, &c.CategoryType, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (d Datasource) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Listing categories")
	defer span.End()

	if d.Cache == nil {
		return d.queryCategories(ctx, userID)
	}
	var categories []model.Category
	err := d.Cache.Once(ctx, cache.CategoriesKey(userID), &categories, d.cacheTTL(), func() (interface{}, error) {
		return d.queryCategories(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}
