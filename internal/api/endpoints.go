package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"budgetbuddy/internal/models"
	"budgetbuddy/internal/session"
)

// Operation names label logs, metrics and errors.
const (
	OpLogin          = "login"
	OpRegister       = "register"
	OpForgotPassword = "forgot_password"
	OpDashboard      = "dashboard"
	OpUser           = "user"
	OpUpdateUser     = "update_user"
	OpTransactions   = "transactions"
	OpCreateTx       = "create_transaction"
	OpUpdateTx       = "update_transaction"
	OpDeleteTx       = "delete_transaction"
	OpBudgets        = "budgets"
	OpCreateBudget   = "create_budget"
	OpMonthly        = "monthly_transactions"
	OpNotifications  = "notifications"
	OpMarkRead       = "mark_notification_read"
	OpReport         = "report"
	OpPredict        = "predict_category"
	OpChatbot        = "chatbot"
)

// Login exchanges credentials for tokens and stores them in the session.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.Tokens, error) {
	var tokens models.Tokens
	err := c.do(ctx, call{op: OpLogin, method: http.MethodPost, path: "/login/", body: creds, public: true}, &tokens)
	if err != nil {
		return models.Tokens{}, err
	}
	if tokens.Access == "" {
		return models.Tokens{}, &Error{Kind: KindMalformed, Op: OpLogin, StatusCode: http.StatusOK, Err: fmt.Errorf("no access token in response")}
	}
	if err := c.session.Set(session.Tokens{Access: tokens.Access, Refresh: tokens.Refresh}); err != nil {
		return models.Tokens{}, err
	}
	return tokens, nil
}

// Logout clears the stored session; the backend keeps no server-side state.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	return c.do(ctx, call{op: OpRegister, method: http.MethodPost, path: "/register/", body: reg, public: true}, nil)
}

// ForgotPassword returns the backend's confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]string{"email": email}
	if err := c.do(ctx, call{op: OpForgotPassword, method: http.MethodPost, path: "/forgot-password/", body: body, public: true}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	var summary models.DashboardSummary
	if err := c.do(ctx, call{op: OpDashboard, method: http.MethodGet, path: "/dashboard/"}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, call{op: OpUser, method: http.MethodGet, path: "/user/"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, call{op: OpUpdateUser, method: http.MethodPatch, path: "/user/", body: update}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := c.do(ctx, call{op: OpTransactions, method: http.MethodGet, path: "/transactions/"}, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) CreateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	var created models.Transaction
	if err := c.do(ctx, call{op: OpCreateTx, method: http.MethodPost, path: "/transactions/", body: tx}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	var updated models.Transaction
	path := fmt.Sprintf("/transactions/%d/", tx.ID)
	if err := c.do(ctx, call{op: OpUpdateTx, method: http.MethodPut, path: path, body: tx}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/transactions/%d/", id)
	return c.do(ctx, call{op: OpDeleteTx, method: http.MethodDelete, path: path}, nil)
}

func (c *Client) Budgets(ctx context.Context) ([]models.Budget, error) {
	var budgets []models.Budget
	if err := c.do(ctx, call{op: OpBudgets, method: http.MethodGet, path: "/budgets/"}, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

func (c *Client) CreateBudget(ctx context.Context, b models.Budget) (*models.Budget, error) {
	var created models.Budget
	if err := c.do(ctx, call{op: OpCreateBudget, method: http.MethodPost, path: "/budgets/", body: b}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) MonthlyTrends(ctx context.Context) ([]models.MonthlyPoint, error) {
	var points []models.MonthlyPoint
	if err := c.do(ctx, call{op: OpMonthly, method: http.MethodGet, path: "/transactions/monthly/"}, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var notes []models.Notification
	if err := c.do(ctx, call{op: OpNotifications, method: http.MethodGet, path: "/notifications/"}, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/notifications/%d/", id)
	body := map[string]bool{"is_read": true}
	return c.do(ctx, call{op: OpMarkRead, method: http.MethodPatch, path: path, body: body}, nil)
}

// Report is a binary document produced by the backend.
type Report struct {
	Data        []byte
	ContentType string
	Filename    string
}

func (c *Client) Report(ctx context.Context, reportType string) (*Report, error) {
	path := "/reports/?type=" + url.QueryEscape(reportType)
	resp, err := c.send(ctx, call{op: OpReport, method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: OpReport, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read report: %w", err)}
	}

	report := &Report{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		report.Filename = params["filename"]
	}
	return report, nil
}

func (c *Client) PredictCategory(ctx context.Context, req models.PredictRequest) (*models.Prediction, error) {
	var p models.Prediction
	if err := c.do(ctx, call{op: OpPredict, method: http.MethodPost, path: "/predict-category/", body: req}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (string, error) {
	var resp models.ChatResponse
	if err := c.do(ctx, call{op: OpChatbot, method: http.MethodPost, path: "/chatbot/", body: req}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
