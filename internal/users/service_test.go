package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := []User{}
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *memoryRepo) GetUser(ctx context.Context, id int64) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) CreateUser(ctx context.Context, user User, passwordHash string) (int64, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return 0, ErrDuplicateEmail
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	r.hashes[user.ID] = passwordHash
	return user.ID, nil
}

func (r *memoryRepo) FindFirstActiveByRole(ctx context.Context, roleCode string) (User, error) {
	var found *User
	for _, user := range r.users {
		if user.RoleCode == roleCode && user.IsActive {
			if found == nil || user.ID < found.ID {
				u := user
				found = &u
			}
		}
	}
	if found == nil {
		return User{}, ErrNotFound
	}
	return *found, nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{Email: "Ana@Taller.CL", Name: "Ana", RoleCode: RoleProduccion, Password: "imprenta2024"})
	require.NoError(t, err)
	require.Equal(t, "ana@taller.cl", user.Email)
	require.True(t, user.IsActive)

	hash := repo.hashes[user.ID]
	require.NotEqual(t, "imprenta2024", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("imprenta2024")))
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Email: "not-an-email", Password: "imprenta2024"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "a@b.cl", Password: "short"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Email: "ana@taller.cl", Name: "Ana", Password: "imprenta2024"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "ANA@taller.cl", Name: "Ana dup", Password: "imprenta2024"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestFindFirstActiveByRolePicksLowestID(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.CreateUser(ctx, CreateUserInput{Email: "p1@taller.cl", Name: "P1", RoleCode: RoleProduccion, Password: "imprenta2024"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "p2@taller.cl", Name: "P2", RoleCode: RoleProduccion, Password: "imprenta2024"})
	require.NoError(t, err)

	got, err := svc.FindFirstActiveByRole(ctx, RoleProduccion)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)

	_, err = svc.FindFirstActiveByRole(ctx, "bodega")
	require.ErrorIs(t, err, ErrNotFound)
}
