package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/errs"
	"github.com/theapemachine/recall/pkg/ledger"
	"github.com/theapemachine/recall/pkg/secret"
)

const (
	auraPollInterval = 10 * time.Second
	auraPollAttempts = 30 // roughly five minutes
)

// AuraHandler provisions one managed Neo4j Aura instance per dataset. The
// generated database password is symmetrically encrypted before it is
// handed back for persistence; Resolve decrypts it at use time.
//
// Cancelling a provisioning call stops the polling but does not clean up a
// partially provisioned instance. That is the operator's responsibility.
type AuraHandler struct {
	cfg          *config.Config
	box          *secret.Box
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
}

// NewAuraHandler creates the managed cloud-graph handler.
func NewAuraHandler(cfg *config.Config, box *secret.Box) *AuraHandler {
	return &AuraHandler{
		cfg:          cfg,
		box:          box,
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      cfg.Aura.APIBaseURL,
		pollInterval: auraPollInterval,
	}
}

type auraInstance struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ConnectionURL string `json:"connection_url"`
	Username      string `json:"username"`
	Password      string `json:"password"`
}

type auraResponse struct {
	Data auraInstance `json:"data"`
}

// Create provisions a new Aura instance for the dataset and waits for it to
// reach the running state.
func (h *AuraHandler) Create(ctx context.Context, datasetID uuid.UUID, owner ledger.User) (*Descriptor, error) {
	if h.cfg.GraphProvider != "neo4j" {
		return nil, &errs.ProviderMismatchError{Handler: "neo4j_aura", Configured: h.cfg.GraphProvider}
	}

	if h.cfg.Aura.ClientID == "" || h.cfg.Aura.ClientSecret == "" || h.cfg.Aura.TenantID == "" {
		return nil, fmt.Errorf(
			"NEO4J_CLIENT_ID, NEO4J_CLIENT_SECRET and NEO4J_TENANT_ID must be set to provision Aura dataset databases")
	}

	token, err := h.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	// Instance names are capped at 30 characters by the Aura API
	name := datasetID.String()
	if len(name) > 29 {
		name = name[:29]
	}

	payload := map[string]any{
		"version":        "5",
		"region":         "europe-west1",
		"memory":         "1GB",
		"name":           name,
		"type":           "professional-db",
		"tenant_id":      h.cfg.Aura.TenantID,
		"cloud_provider": "gcp",
	}

	created, err := h.createInstance(ctx, token, payload)
	if err != nil {
		return nil, err
	}

	if err := h.waitForRunning(ctx, token, created.ID); err != nil {
		return nil, err
	}

	encryptedPassword, err := h.box.Encrypt(created.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypting generated password: %w", err)
	}

	return &Descriptor{
		Name:     "neo4j", // Aura instances always expose the default database
		Provider: "neo4j",
		URL:      created.ConnectionURL,
		Key:      token,
		Handler:  "neo4j_aura",
		ConnectionInfo: map[string]string{
			"graph_database_username": created.Username,
			"graph_database_password": encryptedPassword,
		},
	}, nil
}

// Resolve decrypts the stored password into a copy of the mapping. The
// plaintext lives only in the returned value and must not be persisted or
// cached beyond the current connection attempt.
func (h *AuraHandler) Resolve(ctx context.Context, db ledger.DatasetDatabase) (ledger.DatasetDatabase, error) {
	password, err := h.box.Decrypt(db.GraphDatabaseConnectionInfo["graph_database_password"])
	if err != nil {
		return ledger.DatasetDatabase{}, err
	}

	resolved := db
	resolved.GraphDatabaseConnectionInfo = make(map[string]string, len(db.GraphDatabaseConnectionInfo))
	for k, v := range db.GraphDatabaseConnectionInfo {
		resolved.GraphDatabaseConnectionInfo[k] = v
	}
	resolved.GraphDatabaseConnectionInfo["graph_database_password"] = password

	return resolved, nil
}

// Delete destroys the Aura instance backing the dataset.
func (h *AuraHandler) Delete(ctx context.Context, db ledger.DatasetDatabase) error {
	instanceID, err := instanceIDFromURL(db.GraphDatabaseURL)
	if err != nil {
		return err
	}

	token, err := h.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		h.baseURL+"/v1/instances/"+instanceID, nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	h.authorize(req, token)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting Aura instance %s: %w", instanceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deleting Aura instance %s: %s: %s", instanceID, resp.Status, body)
	}

	log.Debug("deleted Aura instance", "dataset", db.DatasetID, "instance", instanceID)
	return nil
}

func (h *AuraHandler) accessToken(ctx context.Context) (string, error) {
	conf := &clientcredentials.Config{
		ClientID:     h.cfg.Aura.ClientID,
		ClientSecret: h.cfg.Aura.ClientSecret,
		TokenURL:     h.baseURL + "/oauth/token",
	}

	token, err := conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: Aura token exchange: %v", errs.ErrSecretResolution, err)
	}

	return token.AccessToken, nil
}

func (h *AuraHandler) authorize(req *http.Request, token string) {
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
}

func (h *AuraHandler) createInstance(ctx context.Context, token string, payload map[string]any) (*auraInstance, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding instance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/v1/instances", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building instance request: %w", err)
	}
	h.authorize(req, token)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating Aura instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("creating Aura instance: %s: %s", resp.Status, respBody)
	}

	var created auraResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decoding instance response: %w", err)
	}

	return &created.Data, nil
}

// waitForRunning polls the instance status until it reports running,
// yielding between polls and giving up after the attempt budget.
func (h *AuraHandler) waitForRunning(ctx context.Context, token, instanceID string) error {
	status := ""

	for attempt := 0; attempt < auraPollAttempts; attempt++ {
		instance, err := h.getInstance(ctx, token, instanceID)
		if err != nil {
			return err
		}

		status = instance.Status
		if strings.EqualFold(status, "running") {
			return nil
		}

		log.Debug("waiting for Aura instance", "instance", instanceID, "status", status, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.pollInterval):
		}
	}

	return fmt.Errorf("%w: instance %s still %q after %d attempts",
		errs.ErrProvisioningTimeout, instanceID, status, auraPollAttempts)
}

func (h *AuraHandler) getInstance(ctx context.Context, token, instanceID string) (*auraInstance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.baseURL+"/v1/instances/"+instanceID, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	h.authorize(req, token)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching Aura instance status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetching Aura instance status: %s: %s", resp.Status, body)
	}

	var status auraResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}

	return &status.Data, nil
}

// instanceIDFromURL extracts the instance id from a neo4j+s connection URL,
// whose hostname leads with the instance identifier.
func instanceIDFromURL(connectionURL string) (string, error) {
	parsed, err := url.Parse(connectionURL)
	if err != nil {
		return "", fmt.Errorf("parsing connection URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("connection URL %q has no hostname", connectionURL)
	}

	return strings.Split(host, ".")[0], nil
}
