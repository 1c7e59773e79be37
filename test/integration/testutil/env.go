//go:build integration

package testutil

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"ejeapi/pkg/client"
)

const DefaultHealthCheckTimeout = 30 * time.Second

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
}

func NewTestEnv() *TestEnv {
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort)),
	}
}

func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *Client) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanCollection(t, CausasCollection)

	c := &Client{HttpClient: client.NewHttpClient(e.ServerURL, client.DefaultHTTPTimeout)}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultHealthCheckTimeout)
	defer cancel()
	if err := c.WaitForHealthy(ctx, 500*time.Millisecond); err != nil {
		t.Fatalf("%v", err)
	}

	return mongo, c
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanCollection(t, CausasCollection)
		mongo.Close(t)
	}
}

// Client adapts client.HttpClient to fail the test instead of returning errors.
type Client struct {
	*client.HttpClient
}

func (c *Client) Do(t *testing.T, method, path string, body any) *client.Response {
	t.Helper()

	ctx := context.Background()
	var (
		resp *client.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = c.GET(ctx, path)
	case http.MethodPost:
		resp, err = c.POST(ctx, path, body)
	case http.MethodPatch:
		resp, err = c.PATCH(ctx, path, body)
	case http.MethodDelete:
		resp, err = c.DELETE(ctx, path, body)
	default:
		t.Fatalf("unsupported method %s", method)
	}
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func AssertStatusCode(t *testing.T, resp *client.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

func DecodeData(t *testing.T, resp *client.Response, target any) {
	t.Helper()
	if err := resp.DecodeData(target); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, string(resp.Body))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
