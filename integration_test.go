package main

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ray-cod/pocket-bank/internal/config"
	"github.com/ray-cod/pocket-bank/internal/server"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer testcontainers.Container
	serverInstance    *server.Server
	baseURL           string
	client            *http.Client
	dbConnStr         string

	dbHost string
	dbPort string
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container with explicit configuration
	containerReq := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "pocket_bank",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: containerReq,
		Started:          true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get container host: %s", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get mapped port: %s", err)
	}

	suite.dbHost = host
	suite.dbPort = port.Port()
	suite.dbConnStr = fmt.Sprintf("host=%s port=%s user=postgres password=password dbname=pocket_bank sslmode=disable",
		host, port.Port())

	if err := suite.runMigrations(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %s", err)
	}

	if err := suite.startApplicationServer(); err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}
}

func (suite *IntegrationTestSuite) runMigrations() error {
	db, err := sql.Open("postgres", suite.dbConnStr)
	if err != nil {
		return err
	}
	defer db.Close()

	migrationFiles, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Sort migration files by name (version)
	sort.Slice(migrationFiles, func(i, j int) bool {
		return migrationFiles[i].Name() < migrationFiles[j].Name()
	})

	for _, file := range migrationFiles {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		migrationSQL, err := migrationsFS.ReadFile(filepath.Join("migrations", file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
		}
		if _, err := db.Exec(string(migrationSQL)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file.Name(), err)
		}
		suite.T().Logf("Executed migration: %s", file.Name())
	}

	return nil
}

func (suite *IntegrationTestSuite) startApplicationServer() error {
	cfg := &config.Config{
		DBHost:     suite.dbHost,
		DBPort:     suite.dbPort,
		DBUser:     "postgres",
		DBPassword: "password",
		DBName:     "pocket_bank",
		DBSSLMode:  "disable",
		ServerPort: "0", // Let OS choose a free port
		TxTimeout:  5 * time.Second,
	}

	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		return err
	}

	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + port
	return nil
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}
	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

func (suite *IntegrationTestSuite) postJSON(path string, payload interface{}) (*http.Response, map[string]interface{}) {
	data, err := json.Marshal(payload)
	require.NoError(suite.T(), err)

	resp, err := suite.client.Post(suite.baseURL+path, "application/json", bytes.NewReader(data))
	require.NoError(suite.T(), err)
	return resp, suite.parseBody(resp)
}

func (suite *IntegrationTestSuite) get(path string) (*http.Response, map[string]interface{}) {
	resp, err := suite.client.Get(suite.baseURL + path)
	require.NoError(suite.T(), err)
	return resp, suite.parseBody(resp)
}

func (suite *IntegrationTestSuite) parseBody(resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)

	var parsed map[string]interface{}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(suite.T(), json.Unmarshal(body, &parsed), "body: %s", body)
	} else {
		parsed = map[string]interface{}{"raw": string(body)}
	}
	return parsed
}

func (suite *IntegrationTestSuite) createAccount(seed string) map[string]interface{} {
	resp, parsed := suite.postJSON("/accounts", map[string]string{
		"user_id":         uuid.NewString(),
		"initial_balance": seed,
	})
	require.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	return parsed["data"].(map[string]interface{})
}

func errorCode(parsed map[string]interface{}) string {
	errField, ok := parsed["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	return errField["code"].(string)
}

func (suite *IntegrationTestSuite) stepHealthCheck() {
	resp, parsed := suite.get("/health")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "healthy", parsed["status"])
}

func (suite *IntegrationTestSuite) stepDepositScenario() {
	account := suite.createAccount("")
	ref := account["account_id"].(string)

	resp, parsed := suite.postJSON("/deposits", map[string]string{
		"account":     ref,
		"amount":      "2450.00",
		"description": "Initial deposit",
	})
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	rec := parsed["data"].(map[string]interface{})
	assert.Equal(suite.T(), "deposit", rec["kind"])
	assert.Equal(suite.T(), "2450.00", rec["amount"])
	assert.Equal(suite.T(), "2450.00", rec["balance_after"])

	resp, parsed = suite.get("/accounts/" + ref)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "2450.00", parsed["data"].(map[string]interface{})["balance"])
}

func (suite *IntegrationTestSuite) stepInsufficientFunds() {
	account := suite.createAccount("100.00")
	ref := account["account_id"].(string)

	resp, parsed := suite.postJSON("/withdrawals", map[string]string{
		"account": ref,
		"amount":  "150.00",
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(suite.T(), "insufficient_funds", errorCode(parsed))

	// balance unchanged, only the seed record exists
	_, parsed = suite.get("/accounts/" + ref)
	assert.Equal(suite.T(), "100.00", parsed["data"].(map[string]interface{})["balance"])

	_, parsed = suite.get("/accounts/" + ref + "/transactions")
	assert.Len(suite.T(), parsed["data"].([]interface{}), 1)
}

func (suite *IntegrationTestSuite) stepTransferScenario() {
	from := suite.createAccount("2450.00")
	to := suite.createAccount("10000.00")
	fromRef := from["account_id"].(string)
	toRef := to["account_id"].(string)

	resp, parsed := suite.postJSON("/transfers", map[string]string{
		"from":        fromRef,
		"to":          toRef,
		"amount":      "500.00",
		"description": "rent",
	})
	require.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	data := parsed["data"].(map[string]interface{})
	out := data["out"].(map[string]interface{})
	in := data["in"].(map[string]interface{})
	assert.Equal(suite.T(), "transfer_out", out["kind"])
	assert.Equal(suite.T(), "1950.00", out["balance_after"])
	assert.Equal(suite.T(), toRef, out["counterparty_id"])
	assert.Equal(suite.T(), "transfer_in", in["kind"])
	assert.Equal(suite.T(), "10500.00", in["balance_after"])
	assert.Equal(suite.T(), fromRef, in["counterparty_id"])

	_, parsed = suite.get("/accounts/" + fromRef)
	assert.Equal(suite.T(), "1950.00", parsed["data"].(map[string]interface{})["balance"])
	_, parsed = suite.get("/accounts/" + toRef)
	assert.Equal(suite.T(), "10500.00", parsed["data"].(map[string]interface{})["balance"])
}

func (suite *IntegrationTestSuite) stepSameAccountTransfer() {
	account := suite.createAccount("50.00")
	ref := account["account_id"].(string)

	resp, parsed := suite.postJSON("/transfers", map[string]string{
		"from":   ref,
		"to":     ref,
		"amount": "10.00",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "same_account", errorCode(parsed))

	_, parsed = suite.get("/accounts/" + ref)
	assert.Equal(suite.T(), "50.00", parsed["data"].(map[string]interface{})["balance"])
}

func (suite *IntegrationTestSuite) stepInvalidAmount() {
	account := suite.createAccount("")
	ref := account["account_id"].(string)

	for _, amount := range []string{"abc", "-5", "0"} {
		resp, parsed := suite.postJSON("/deposits", map[string]string{
			"account": ref,
			"amount":  amount,
		})
		assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode, "amount %q", amount)
		assert.Equal(suite.T(), "invalid_amount", errorCode(parsed), "amount %q", amount)
	}
}

func (suite *IntegrationTestSuite) stepAccountNotFound() {
	resp, parsed := suite.get("/accounts/" + uuid.NewString())
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	assert.Equal(suite.T(), "account_not_found", errorCode(parsed))
}

func (suite *IntegrationTestSuite) stepAccountNumberResolution() {
	account := suite.createAccount("75.00")
	number := account["account_number"].(string)

	resp, parsed := suite.postJSON("/deposits", map[string]string{
		"account": number,
		"amount":  "25.00",
	})
	require.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	assert.Equal(suite.T(), "100.00", parsed["data"].(map[string]interface{})["balance_after"])
}

func (suite *IntegrationTestSuite) stepHistoryFiltersAndPagination() {
	account := suite.createAccount("")
	ref := account["account_id"].(string)

	for i := 0; i < 4; i++ {
		resp, _ := suite.postJSON("/deposits", map[string]string{"account": ref, "amount": "10.00"})
		require.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	}
	resp, _ := suite.postJSON("/withdrawals", map[string]string{"account": ref, "amount": "5.00"})
	require.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

	// by kind
	_, parsed := suite.get("/accounts/" + ref + "/transactions?kind=withdraw")
	assert.Len(suite.T(), parsed["data"].([]interface{}), 1)

	// paginated, newest first
	_, parsed = suite.get("/accounts/" + ref + "/transactions?page=0&page_size=2")
	page0 := parsed["data"].([]interface{})
	require.Len(suite.T(), page0, 2)
	assert.Equal(suite.T(), "withdraw", page0[0].(map[string]interface{})["kind"])

	// out-of-range page is empty, not an error
	resp, parsed = suite.get("/accounts/" + ref + "/transactions?page=9&page_size=2")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Empty(suite.T(), parsed["data"])
}

func (suite *IntegrationTestSuite) stepCSVExport() {
	account := suite.createAccount("500.00")
	ref := account["account_id"].(string)

	resp, parsed := suite.get("/accounts/" + ref + "/transactions/export")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), resp.Header.Get("Content-Type"), "text/csv")

	raw := parsed["raw"].(string)
	assert.Contains(suite.T(), raw, "transaction_id,account_id,type,amount")
	assert.Contains(suite.T(), raw, "Initial deposit")
}

func (suite *IntegrationTestSuite) stepDeactivatedAccountRejectsMutations() {
	account := suite.createAccount("40.00")
	ref := account["account_id"].(string)

	resp, _ := suite.postJSON("/accounts/"+ref+"/deactivate", map[string]string{})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	resp, parsed := suite.postJSON("/deposits", map[string]string{"account": ref, "amount": "1.00"})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(suite.T(), "account_inactive", errorCode(parsed))

	// still readable
	resp, parsed = suite.get("/accounts/" + ref)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), false, parsed["data"].(map[string]interface{})["active"])
	assert.Equal(suite.T(), "40.00", parsed["data"].(map[string]interface{})["balance"])
}

func (suite *IntegrationTestSuite) TestFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test in short mode")
	}

	suite.stepHealthCheck()
	suite.stepDepositScenario()
	suite.stepInsufficientFunds()
	suite.stepTransferScenario()
	suite.stepSameAccountTransfer()
	suite.stepInvalidAmount()
	suite.stepAccountNotFound()
	suite.stepAccountNumberResolution()
	suite.stepHistoryFiltersAndPagination()
	suite.stepCSVExport()
	suite.stepDeactivatedAccountRejectsMutations()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
