package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
)

// UserRepository reads the user directory. Accounts are managed elsewhere.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindContacts returns the active users among ids that have an email address.
func (r *UserRepository) FindContacts(ctx context.Context, ids []string) ([]models.UserContact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, email, full_name, role FROM users WHERE id IN (?) AND active = TRUE AND email <> ''`, ids)
	if err != nil {
		return nil, fmt.Errorf("build contacts query: %w", err)
	}
	query = r.db.Rebind(query)

	var contacts []models.UserContact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	return contacts, nil
}
