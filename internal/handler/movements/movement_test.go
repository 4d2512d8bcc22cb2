package movements

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cashflow/internal/database"
	"cashflow/internal/events"
	"cashflow/internal/metrics"
	"cashflow/internal/middleware"
	"cashflow/internal/model"
	"cashflow/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const movID = "3f1c2b9e-2f43-4c1e-9a57-0d7c6b1e8a11"

type realValidator struct{ v *validator.Validate }

func (r *realValidator) Validate(i interface{}) error { return r.v.Struct(i) }

type change struct {
	action events.Action
	id     string
	actor  int
}

type fakeNotifier struct{ changes []change }

func (f *fakeNotifier) MovementChanged(_ context.Context, action events.Action, id string, actor int) {
	f.changes = append(f.changes, change{action, id, actor})
}

func restore() {
	listMovements = store.ListMovements
	summarizeMovements = store.SummarizeMovements
	getMovement = store.GetMovement
	createMovement = store.CreateMovement
	updateMovement = store.UpdateMovement
	deleteMovement = store.DeleteMovement
}

func newCtx(e *echo.Echo, method, target, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetPath("/movements/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	c.Set(middleware.ContextUserKey, &model.User{ID: 7, Name: "Admin", Role: model.RoleAdmin})
	return c, rec
}

func sampleMovement() *model.Movement {
	return &model.Movement{
		ID:      movID,
		Concept: "Salary",
		Amount:  decimal.RequireFromString("1500"),
		Date:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Type:    model.MovementIncome,
		UserID:  7,
		Owner:   model.Owner{ID: 7, Name: "Admin", Email: "a@x"},
	}
}

func TestListMovementsHandler(t *testing.T) {
	e := echo.New()

	t.Run("bad date", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newCtx(e, http.MethodGet, "/movements?dateFrom=nope", "", "")
		require.NoError(t, ListMovementsHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid dateFrom")

		ctx, rec = newCtx(e, http.MethodGet, "/movements?dateTo=nope", "", "")
		require.NoError(t, ListMovementsHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		t.Cleanup(restore)
		listMovements = func(context.Context, database.DB, model.MovementFilter, model.PageRequest) ([]model.Movement, error) {
			return nil, nil
		}
		summarizeMovements = func(context.Context, database.DB, model.MovementFilter) (model.MovementSummary, error) {
			return model.MovementSummary{}, errors.New("db")
		}
		ctx, rec := newCtx(e, http.MethodGet, "/movements", "", "")
		require.NoError(t, ListMovementsHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		t.Cleanup(restore)
		var gotFilter model.MovementFilter
		var gotPage model.PageRequest
		listMovements = func(_ context.Context, _ database.DB, f model.MovementFilter, p model.PageRequest) ([]model.Movement, error) {
			gotFilter, gotPage = f, p
			return []model.Movement{*sampleMovement()}, nil
		}
		summarizeMovements = func(context.Context, database.DB, model.MovementFilter) (model.MovementSummary, error) {
			return model.MovementSummary{
				Count:   21,
				Total:   decimal.RequireFromString("2300"),
				Income:  decimal.RequireFromString("1500"),
				Expense: decimal.RequireFromString("800"),
			}, nil
		}
		ctx, rec := newCtx(e, http.MethodGet,
			"/movements?search=%20rent%20&type=expense&dateFrom=2024-01-01&dateTo=2024-01-31&page=2&limit=10", "", "")
		require.NoError(t, ListMovementsHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)

		require.Equal(t, "rent", gotFilter.Search)
		require.Equal(t, model.MovementExpense, *gotFilter.Type)
		require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *gotFilter.From)
		require.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), *gotFilter.To)
		require.Equal(t, model.PageRequest{Page: 2, Limit: 10}, gotPage)

		body := rec.Body.String()
		require.Contains(t, body, `"total":21,"page":2,"limit":10,"totalPages":3,"hasNext":true,"hasPrev":true`)
		require.Contains(t, body, `"balance":"700"`)
		require.Contains(t, body, `"concept":"Salary"`)
		require.Contains(t, body, `"user":{"id":7,"name":"Admin","email":"a@x"}`)
	})

	t.Run("unknown type ignored and empty list", func(t *testing.T) {
		t.Cleanup(restore)
		listMovements = func(_ context.Context, _ database.DB, f model.MovementFilter, _ model.PageRequest) ([]model.Movement, error) {
			require.Nil(t, f.Type)
			return nil, nil
		}
		summarizeMovements = func(context.Context, database.DB, model.MovementFilter) (model.MovementSummary, error) {
			return model.MovementSummary{}, nil
		}
		ctx, rec := newCtx(e, http.MethodGet, "/movements?type=TRANSFER", "", "")
		require.NoError(t, ListMovementsHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"movements":[]`)
	})
}

func TestCreateMovementHandler(t *testing.T) {
	e := echo.New()
	e.Validator = &realValidator{v: validator.New()}

	cases := []struct {
		name string
		body string
		want string
	}{
		{"bind error", `{`, "invalid request payload"},
		{"bad amount type", `{"concept":"a","amount":"abc","date":"2024-01-01","type":"INCOME"}`, "invalid request payload"},
		{"missing fields", `{"concept":"a"}`, "required"},
		{"bad type", `{"concept":"a","amount":5,"date":"2024-01-01","type":"LOAN"}`, "oneof"},
		{"blank concept", `{"concept":"   ","amount":5,"date":"2024-01-01","type":"INCOME"}`, "concept"},
		{"zero amount", `{"concept":"a","amount":0,"date":"2024-01-01","type":"INCOME"}`, "amount"},
		{"negative amount", `{"concept":"a","amount":-3,"date":"2024-01-01","type":"INCOME"}`, "amount"},
		{"three decimals", `{"concept":"a","amount":"0.005","date":"2024-01-01","type":"INCOME"}`, "two decimals"},
		{"huge exponent", `{"concept":"a","amount":"1e400000000","date":"2024-01-01","type":"INCOME"}`, "amount"},
		{"bad date", `{"concept":"a","amount":5,"date":"31/01/2024","type":"INCOME"}`, "invalid date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Cleanup(restore)
			createMovement = func(context.Context, database.DB, *model.Movement) (*model.Movement, error) {
				t.Fatal("should not create")
				return nil, nil
			}
			n := &fakeNotifier{}
			ctx, rec := newCtx(e, http.MethodPost, "/movements", tc.body, "")
			require.NoError(t, CreateMovementHandler(nil, n, nil)(ctx))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), tc.want)
			require.Empty(t, n.changes)
		})
	}

	t.Run("store error", func(t *testing.T) {
		t.Cleanup(restore)
		createMovement = func(context.Context, database.DB, *model.Movement) (*model.Movement, error) {
			return nil, errors.New("db")
		}
		n := &fakeNotifier{}
		ctx, rec := newCtx(e, http.MethodPost, "/movements", `{"concept":"a","amount":5,"date":"2024-01-01","type":"INCOME"}`, "")
		require.NoError(t, CreateMovementHandler(nil, n, nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Empty(t, n.changes)
	})

	t.Run("created", func(t *testing.T) {
		t.Cleanup(restore)
		var got model.Movement
		createMovement = func(_ context.Context, _ database.DB, m *model.Movement) (*model.Movement, error) {
			got = *m
			out := sampleMovement()
			return out, nil
		}
		n := &fakeNotifier{}
		m := metrics.New()
		body := `{"concept":" Salary ","amount":"1500.00","date":"2024-01-15","type":"INCOME","description":"  ","category":"work"}`
		ctx, rec := newCtx(e, http.MethodPost, "/movements", body, "")
		require.NoError(t, CreateMovementHandler(nil, n, m)(ctx))
		require.Equal(t, http.StatusCreated, rec.Code)

		require.Equal(t, "Salary", got.Concept)
		require.Equal(t, "1500.00", got.Amount.StringFixed(2))
		require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got.Date)
		require.Equal(t, model.MovementIncome, got.Type)
		require.Nil(t, got.Description)
		require.Equal(t, "work", *got.Category)
		require.Equal(t, 7, got.UserID)
		require.Equal(t, []change{{events.ActionCreated, movID, 7}}, n.changes)
		require.Contains(t, rec.Body.String(), `"id":"`+movID+`"`)
	})
}

func TestGetMovementHandler(t *testing.T) {
	e := echo.New()

	t.Run("invalid id", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newCtx(e, http.MethodGet, "/movements/x", "", "mov_123")
		require.NoError(t, GetMovementHandler(nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		t.Cleanup(restore)
		getMovement = func(context.Context, database.DB, string) (*model.Movement, error) {
			return nil, store.ErrNotFound
		}
		ctx, rec := newCtx(e, http.MethodGet, "/", "", movID)
		require.NoError(t, GetMovementHandler(nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "movement not found")
	})

	t.Run("db error", func(t *testing.T) {
		t.Cleanup(restore)
		getMovement = func(context.Context, database.DB, string) (*model.Movement, error) {
			return nil, errors.New(`relation "movements" does not exist`)
		}
		ctx, rec := newCtx(e, http.MethodGet, "/", "", movID)
		require.NoError(t, GetMovementHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "failed to load movement")
		require.NotContains(t, rec.Body.String(), "relation")
	})

	t.Run("ok", func(t *testing.T) {
		t.Cleanup(restore)
		getMovement = func(_ context.Context, _ database.DB, id string) (*model.Movement, error) {
			require.Equal(t, movID, id)
			return sampleMovement(), nil
		}
		ctx, rec := newCtx(e, http.MethodGet, "/", "", strings.ToUpper(movID))
		require.NoError(t, GetMovementHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"amount":"1500"`)
	})
}

func TestUpdateMovementHandler(t *testing.T) {
	e := echo.New()
	e.Validator = &realValidator{v: validator.New()}

	bad := []struct {
		name string
		body string
		want string
	}{
		{"bind error", `{`, "invalid request payload"},
		{"bad type", `{"type":"LOAN"}`, "oneof"},
		{"empty concept", `{"concept":"  "}`, "concept"},
		{"bad amount", `{"amount":0}`, "amount"},
		{"huge amount", `{"amount":1e400000000}`, "amount"},
		{"bad date", `{"date":"tomorrow"}`, "invalid date"},
		{"no fields", `{}`, "no fields to update"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			t.Cleanup(restore)
			ctx, rec := newCtx(e, http.MethodPut, "/", tc.body, movID)
			require.NoError(t, UpdateMovementHandler(nil, &fakeNotifier{}, nil)(ctx))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), tc.want)
		})
	}

	t.Run("invalid id", func(t *testing.T) {
		ctx, rec := newCtx(e, http.MethodPut, "/", `{"concept":"x"}`, "nope")
		require.NoError(t, UpdateMovementHandler(nil, &fakeNotifier{}, nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		t.Cleanup(restore)
		updateMovement = func(context.Context, database.DB, string, model.MovementPatch) (*model.Movement, error) {
			return nil, store.ErrNotFound
		}
		n := &fakeNotifier{}
		ctx, rec := newCtx(e, http.MethodPut, "/", `{"concept":"x"}`, movID)
		require.NoError(t, UpdateMovementHandler(nil, n, nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Empty(t, n.changes)
	})

	t.Run("db error", func(t *testing.T) {
		t.Cleanup(restore)
		updateMovement = func(context.Context, database.DB, string, model.MovementPatch) (*model.Movement, error) {
			return nil, errors.New("db")
		}
		ctx, rec := newCtx(e, http.MethodPut, "/", `{"concept":"x"}`, movID)
		require.NoError(t, UpdateMovementHandler(nil, &fakeNotifier{}, nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		t.Cleanup(restore)
		var got model.MovementPatch
		updateMovement = func(_ context.Context, _ database.DB, id string, p model.MovementPatch) (*model.Movement, error) {
			got = p
			return sampleMovement(), nil
		}
		n := &fakeNotifier{}
		body := `{"amount":99.5,"type":"EXPENSE","date":"2024-02-01T10:00:00Z","description":"","category":" food "}`
		ctx, rec := newCtx(e, http.MethodPut, "/", body, movID)
		require.NoError(t, UpdateMovementHandler(nil, n, nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)

		require.Nil(t, got.Concept)
		require.Equal(t, "99.50", got.Amount.StringFixed(2))
		require.Equal(t, model.MovementExpense, *got.Type)
		require.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), *got.Date)
		require.Equal(t, "", *got.Description)
		require.Equal(t, "food", *got.Category)
		require.Equal(t, []change{{events.ActionUpdated, movID, 7}}, n.changes)
	})
}

func TestDeleteMovementHandler(t *testing.T) {
	e := echo.New()

	t.Run("invalid id", func(t *testing.T) {
		ctx, rec := newCtx(e, http.MethodDelete, "/", "", "1")
		require.NoError(t, DeleteMovementHandler(nil, &fakeNotifier{}, nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		t.Cleanup(restore)
		deleteMovement = func(context.Context, database.DB, string) error { return store.ErrNotFound }
		ctx, rec := newCtx(e, http.MethodDelete, "/", "", movID)
		require.NoError(t, DeleteMovementHandler(nil, &fakeNotifier{}, nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("db error", func(t *testing.T) {
		t.Cleanup(restore)
		deleteMovement = func(context.Context, database.DB, string) error { return errors.New("db") }
		ctx, rec := newCtx(e, http.MethodDelete, "/", "", movID)
		require.NoError(t, DeleteMovementHandler(nil, &fakeNotifier{}, nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		t.Cleanup(restore)
		deleteMovement = func(context.Context, database.DB, string) error { return nil }
		n := &fakeNotifier{}
		m := metrics.New()
		ctx, rec := newCtx(e, http.MethodDelete, "/", "", movID)
		require.NoError(t, DeleteMovementHandler(nil, n, m)(ctx))
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, []change{{events.ActionDeleted, movID, 7}}, n.changes)
	})
}
