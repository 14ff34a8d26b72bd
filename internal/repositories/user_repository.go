package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleStaff // Default role
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(id, owner_id, name, email, password_hash, role, is_active)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING created_at, updated_at`,
		u.ID, u.OwnerID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a user with this email already exists").WithDetail("email", u.Email)
		}
		return translate(err, "user")
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, owner_id, name, email, password_hash, role, is_active, created_at, updated_at
         FROM users WHERE id=$1`, id)

	var user models.User
	err := row.Scan(&user.ID, &user.OwnerID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, owner_id, name, email, password_hash, role, is_active, created_at, updated_at
         FROM users WHERE LOWER(email)=LOWER($1)`, email)

	var user models.User
	err := row.Scan(&user.ID, &user.OwnerID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// ListByOwner returns the users of one tenant
func (r *UserRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.User, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, owner_id, name, email, role, is_active, created_at, updated_at
         FROM users WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, translate(err, "user")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.OwnerID, &user.Name, &user.Email, &user.Role,
			&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, translate(err, "user")
		}
		users = append(users, &user)
	}
	return users, translate(rows.Err(), "user")
}

// SetActive suspends or reactivates a user of the tenant
func (r *UserRepository) SetActive(ctx context.Context, ownerID, userID uuid.UUID, isActive bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET is_active=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2 AND owner_id=$3`,
		isActive, userID, ownerID)
	if err != nil {
		return translate(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}
