package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

const maxErrorBodyLen = 512

// Client talks to the two remote bases the app consumes: the public catalog
// API and the store API owning carts, orders and users.
type Client struct {
	catalogURL string
	storeURL   string
	httpc      *http.Client
	logg       *logger.Logger
}

func NewClient(cfg config.APIConfig, logg *logger.Logger) (*Client, error) {
	catalogURL := strings.TrimRight(strings.TrimSpace(cfg.CatalogBaseURL), "/")
	if catalogURL == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	storeURL := strings.TrimRight(strings.TrimSpace(cfg.StoreBaseURL), "/")
	if storeURL == "" {
		return nil, fmt.Errorf("store base url is required")
	}

	return &Client{
		catalogURL: catalogURL,
		storeURL:   storeURL,
		httpc:      &http.Client{Timeout: cfg.Timeout},
		logg:       logg,
	}, nil
}

// Categories lists the catalog's category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.do(ctx, http.MethodGet, c.catalogURL, "/products/categories", "", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ProductsByCategory lists products within the named category.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	if strings.TrimSpace(category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	var products []Product
	path := "/products/category/" + url.PathEscape(category)
	if err := c.do(ctx, http.MethodGet, c.catalogURL, path, "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var product Product
	path := fmt.Sprintf("/products/%d", id)
	if err := c.do(ctx, http.MethodGet, c.catalogURL, path, "", nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

type cartPayload struct {
	Items []CartItem `json:"items"`
}

// PutCart overwrites the remote cart with the provided items.
func (c *Client) PutCart(ctx context.Context, token string, items []CartItem) error {
	if err := requireToken(token); err != nil {
		return err
	}
	if items == nil {
		items = []CartItem{}
	}
	return c.do(ctx, http.MethodPut, c.storeURL, "/cart", token, cartPayload{Items: items}, nil)
}

// GetCart fetches the remote cart contents.
func (c *Client) GetCart(ctx context.Context, token string) ([]CartItem, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var payload cartPayload
	if err := c.do(ctx, http.MethodGet, c.storeURL, "/cart", token, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// PlaceOrder submits the items as a new order.
func (c *Client) PlaceOrder(ctx context.Context, token string, items []CartItem) (*Order, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, c.storeURL, "/orders/neworder", token, cartPayload{Items: items}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

type ordersEnvelope struct {
	Orders []Order `json:"orders"`
}

// Orders lists the signed-in user's orders.
func (c *Client) Orders(ctx context.Context, token string) ([]Order, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var payload ordersEnvelope
	if err := c.do(ctx, http.MethodGet, c.storeURL, "/orders/all", token, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

type updateOrderRequest struct {
	OrderID     int64   `json:"orderID"`
	IsPaid      IntBool `json:"isPaid"`
	IsDelivered IntBool `json:"isDelivered"`
}

// UpdateOrder sets the order's status flags.
func (c *Client) UpdateOrder(ctx context.Context, token string, orderID int64, isPaid, isDelivered bool) error {
	if err := requireToken(token); err != nil {
		return err
	}
	body := updateOrderRequest{
		OrderID:     orderID,
		IsPaid:      IntBool(isPaid),
		IsDelivered: IntBool(isDelivered),
	}
	return c.do(ctx, http.MethodPost, c.storeURL, "/orders/updateorder", token, body, nil)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	var auth AuthResponse
	body := signInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, c.storeURL, "/users/signin", "", body, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a new account and returns its session.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var auth AuthResponse
	body := signUpRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, c.storeURL, "/users/signup", "", body, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// UpdateUser changes the signed-in user's name and password.
func (c *Client) UpdateUser(ctx context.Context, token, name, password string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.storeURL, "/users/update", token, updateUserRequest{Name: name, Password: password}, nil)
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "auth token is required")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, base, path, token string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		message := fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)
		if len(snippet) > 0 {
			message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(string(snippet)))
		}
		return pkgerrors.New(codeForStatus(resp.StatusCode), message)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding %s %s response", method, path))
	}
	return nil
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
