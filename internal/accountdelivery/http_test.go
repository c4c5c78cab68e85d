package accountdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/currencypkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := web.RegisterValidations(v, map[string]validator.Func{
			"currency": currencypkg.ValidCurrency,
			"category": ValidCategory,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "registering validations: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

var compareAccounts = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.EquateApproxTime(time.Second),
}

func randomAccount(category domain.Category) domain.Account {
	return domain.Account{
		ID:        randompkg.IntBetween(1, 1000),
		Category:  category,
		Name:      randompkg.Owner(),
		Number:    randompkg.AccountNumber(),
		Currency:  randompkg.Currency(),
		Balance:   randompkg.MoneyAmountBetween(0, 1000),
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

func TestCreate(t *testing.T) {
	account := randomAccount(domain.CategorySavings)

	type requestBody struct {
		Category string `json:"category"`
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}

	okBody := requestBody{
		Category: string(account.Category),
		Name:     account.Name,
		Currency: account.Currency,
	}

	testCases := []struct {
		name           string
		requestBody    requestBody
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:        "OK",
			requestBody: okBody,
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Eq(account.Category), gomock.Eq(account.Name), gomock.Eq(account.Currency)).
					Times(1).
					Return(account, nil)
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "InvalidCurrency",
			requestBody: requestBody{
				Category: string(account.Category),
				Currency: "RUB",
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Currency is not supported",
		},
		{
			name: "InvalidCategory",
			requestBody: requestBody{
				Category: "brokerage",
				Currency: account.Currency,
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Category must be one of checking, savings, business",
		},
		{
			name: "MissingCategory",
			requestBody: requestBody{
				Currency: account.Currency,
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Category field is required",
		},
		{
			name:        "InternalServerError",
			requestBody: okBody,
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Account{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Initialize mocks
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			accountService := NewMockService(ctrl)
			accountHandler := NewHandler(accountService)

			server := gin.New()
			server.POST("/accounts", accountHandler.Create)

			tc.buildStubs(accountService)

			// Send request
			body, err := json.Marshal(tc.requestBody)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			// Test response
			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			res := web.Response{Data: &data{}}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusCreated {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			got := res.Data.(*data)
			if diff := cmp.Diff(account, got.Account, compareAccounts); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGet(t *testing.T) {
	account := randomAccount(domain.CategoryChecking)

	testCases := []struct {
		name           string
		accountID      string
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:      "OK",
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).Times(1).Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:      "InvalidID",
			accountID: "0",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID field is required",
		},
		{
			name:      "NotFound",
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name:      "InternalServerError",
			accountID: fmt.Sprint(account.ID),
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).Times(1).
					Return(domain.Account{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			accountService := NewMockService(ctrl)
			accountHandler := NewHandler(accountService)

			server := gin.New()
			server.GET("/accounts/:id", accountHandler.Get)

			tc.buildStubs(accountService)

			req, err := http.NewRequest(http.MethodGet, "/accounts/"+tc.accountID, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			res := web.Response{Data: &data{}}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			got := res.Data.(*data)
			if diff := cmp.Diff(account, got.Account, compareAccounts); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestList(t *testing.T) {
	accounts := []domain.Account{
		randomAccount(domain.CategoryChecking),
		randomAccount(domain.CategorySavings),
	}

	testCases := []struct {
		name           string
		query          string
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:  "OK",
			query: "?page_id=1&page_size=5",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().List(gomock.Any(), gomock.Eq(int32(5)), gomock.Eq(int32(1))).Times(1).
					Return(accounts, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "PageSizeTooLarge",
			query: "?page_id=1&page_size=500",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "PageSize must be at most 100",
		},
		{
			name:  "MissingPageID",
			query: "?page_size=5",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "PageID field is required",
		},
		{
			name:  "InternalServerError",
			query: "?page_id=1&page_size=5",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Times(1).
					Return(nil, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			accountService := NewMockService(ctrl)
			accountHandler := NewHandler(accountService)

			server := gin.New()
			server.GET("/accounts", accountHandler.List)

			tc.buildStubs(accountService)

			req, err := http.NewRequest(http.MethodGet, "/accounts"+tc.query, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			res := web.Response{Data: &dataAccounts{}}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			got := res.Data.(*dataAccounts)
			if diff := cmp.Diff(accounts, got.Accounts, compareAccounts); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClose(t *testing.T) {
	testCases := []struct {
		name           string
		accountID      string
		buildStubs     func(accountService *MockService)
		wantStatusCode int
	}{
		{
			name:      "OK",
			accountID: "7",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Close(gomock.Any(), gomock.Eq(int32(7))).Times(1).Return(nil)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:      "InvalidID",
			accountID: "-7",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Close(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:      "NotFound",
			accountID: "7",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Close(gomock.Any(), gomock.Eq(int32(7))).Times(1).Return(domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			accountService := NewMockService(ctrl)

			server := gin.New()
			server.DELETE("/accounts/:id", NewHandler(accountService).Close)

			tc.buildStubs(accountService)

			req, err := http.NewRequest(http.MethodDelete, "/accounts/"+tc.accountID, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}
		})
	}
}
