package api

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/illegalcall/fitcoach/internal/models"
	"github.com/illegalcall/fitcoach/internal/pkg/supabase"
)

func TestHandleSignup(t *testing.T) {
	t.Run("creates user", func(t *testing.T) {
		env := setupTestServer(t)
		env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("ana@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), models.DefaultCredits, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

		resp := env.request(t, "POST", "/api/auth/signup", models.Credentials{Email: "ana@example.com", Password: "long-enough"}, "")
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var result models.AuthResponse
		decodeBody(t, resp, &result)
		assert.Equal(t, "Bearer", result.TokenType)
		require.NotNil(t, result.User)
		assert.Equal(t, int64(7), result.User.ID)
		assert.Equal(t, 100, result.User.Credits)
		assert.NotEmpty(t, result.User.APIKey)
		assert.Empty(t, result.User.HashedPassword)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := setupTestServer(t)
		env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pq.Error{Code: "23505"})

		resp := env.request(t, "POST", "/api/auth/signup", models.Credentials{Email: "ana@example.com", Password: "long-enough"}, "")
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Email already registered", errorMessage(t, resp))
	})

	t.Run("invalid input", func(t *testing.T) {
		env := setupTestServer(t)

		tests := []struct {
			body interface{}
			want string
		}{
			{models.Credentials{Email: "ana@example.com", Password: "short"}, "password must be at least 8 characters"},
			{models.Credentials{Email: "not-an-email", Password: "long-enough"}, "email must be a valid email"},
			{models.Credentials{}, "email is required; password is required"},
			{`{"email":`, "Invalid request body"},
		}
		for _, tt := range tests {
			resp := env.request(t, "POST", "/api/auth/signup", tt.body, "")
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, errorMessage(t, resp))
		}
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func expectUserByEmail(env *testEnv, email, password string, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(7, email, string(hash), "key", 100, nil, active, time.Now(), nil))
}

func TestHandleLogin(t *testing.T) {
	tests := []struct {
		name           string
		reqBody        models.Credentials
		setup          func(env *testEnv)
		expectedStatus int
		expectedError  string
	}{
		{
			name:    "successful login",
			reqBody: models.Credentials{Email: "ana@example.com", Password: "correct-horse"},
			setup: func(env *testEnv) {
				expectUserByEmail(env, "ana@example.com", "correct-horse", true)
			},
			expectedStatus: fiber.StatusOK,
		},
		{
			name:    "wrong password",
			reqBody: models.Credentials{Email: "ana@example.com", Password: "battery-staple"},
			setup: func(env *testEnv) {
				expectUserByEmail(env, "ana@example.com", "correct-horse", true)
			},
			expectedStatus: fiber.StatusUnauthorized,
			expectedError:  "Invalid credentials",
		},
		{
			name:    "unknown email",
			reqBody: models.Credentials{Email: "nobody@example.com", Password: "correct-horse"},
			setup: func(env *testEnv) {
				env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
					WillReturnRows(sqlmock.NewRows(userRowColumns))
			},
			expectedStatus: fiber.StatusUnauthorized,
			expectedError:  "Invalid credentials",
		},
		{
			name:    "inactive user",
			reqBody: models.Credentials{Email: "ana@example.com", Password: "correct-horse"},
			setup: func(env *testEnv) {
				expectUserByEmail(env, "ana@example.com", "correct-horse", false)
			},
			expectedStatus: fiber.StatusUnauthorized,
			expectedError:  "Invalid credentials",
		},
		{
			name:    "database down",
			reqBody: models.Credentials{Email: "ana@example.com", Password: "correct-horse"},
			setup: func(env *testEnv) {
				env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
					WillReturnError(errors.New("connection refused"))
			},
			expectedStatus: fiber.StatusInternalServerError,
			expectedError:  "Authentication service error",
		},
		{
			name:           "missing credentials",
			reqBody:        models.Credentials{},
			setup:          func(env *testEnv) {},
			expectedStatus: fiber.StatusBadRequest,
			expectedError:  "Email and password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)
			tt.setup(env)

			resp := env.request(t, "POST", "/api/auth/login", tt.reqBody, "")
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorMessage(t, resp))
				return
			}

			var result models.AuthResponse
			decodeBody(t, resp, &result)
			assert.Equal(t, "Bearer", result.TokenType)

			// Verify token validity
			token, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
				return []byte(env.server.cfg.JWT.Secret), nil
			})
			require.NoError(t, err)
			assert.True(t, token.Valid)

			// Verify claims
			claims := token.Claims.(jwt.MapClaims)
			assert.Equal(t, float64(7), claims["user_id"])
			assert.Equal(t, "ana@example.com", claims["email"])
			exp := int64(claims["exp"].(float64))
			assert.Greater(t, exp, time.Now().Unix())
			assert.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

type fakeValidator struct {
	password string
	err      error
}

func (f *fakeValidator) ValidateCredentials(email, password string) error {
	if f.err != nil {
		return f.err
	}
	if password != f.password {
		return fmt.Errorf("%w: status 400", supabase.ErrInvalidCredentials)
	}
	return nil
}

func TestHandleLoginExternal(t *testing.T) {
	t.Run("first login creates local user", func(t *testing.T) {
		env := setupTestServer(t)
		env.server.external = &fakeValidator{password: "correct-horse"}

		env.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
			WillReturnRows(sqlmock.NewRows(userRowColumns))
		env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("ana@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), models.DefaultCredits, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, time.Now()))

		resp := env.request(t, "POST", "/api/auth/login", models.Credentials{Email: "ana@example.com", Password: "correct-horse"}, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var result models.AuthResponse
		decodeBody(t, resp, &result)
		assert.Equal(t, int64(12), result.User.ID)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("rejected by provider", func(t *testing.T) {
		env := setupTestServer(t)
		env.server.external = &fakeValidator{password: "correct-horse"}

		resp := env.request(t, "POST", "/api/auth/login", models.Credentials{Email: "ana@example.com", Password: "nope-nope"}, "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		env := setupTestServer(t)
		env.server.external = &fakeValidator{err: errors.New("dial tcp: connection refused")}

		resp := env.request(t, "POST", "/api/auth/login", models.Credentials{Email: "ana@example.com", Password: "correct-horse"}, "")
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}
