package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendSwap(t *testing.T, app *fiber.App, token string, recipientID uint) uint {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/swaps/send", token, map[string]any{
		"recipient_id":    recipientID,
		"requester_skill": "Go",
		"recipient_skill": "Piano",
		"message":         "Trade?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	swap := body["swap"].(map[string]any)
	assert.Equal(t, "pending", swap["status"])
	return uint(swap["id"].(float64))
}

func TestSwapLifecycle(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signup(t, app, "Alice", "alice@example.com", nil)
	bobToken, bobID := signup(t, app, "Bob", "bob@example.com", nil)

	swapID := sendSwap(t, app, aliceToken, bobID)

	// Bob sees it in received, Alice in sent.
	resp := doJSON(t, app, http.MethodGet, "/api/swaps/received", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	received := decodeBody(t, resp)["swaps"].([]any)
	require.Len(t, received, 1)
	first := received[0].(map[string]any)
	assert.Equal(t, "Alice", first["requester"].(map[string]any)["name"])

	resp = doJSON(t, app, http.MethodGet, "/api/swaps/user", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decodeBody(t, resp)["swaps"].([]any)
	require.Len(t, sent, 1)

	// Accept stamps accepted_at and stores the optional notes.
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "accept"), bobToken, map[string]any{
		"notes": "let's start Monday",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	swap := decodeBody(t, resp)["swap"].(map[string]any)
	assert.Equal(t, "accepted", swap["status"])
	assert.NotNil(t, swap["accepted_at"])
	assert.Equal(t, "let's start Monday", swap["notes"])

	// Complete stamps completed_at; the accept notes stay on the record.
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "complete"), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	swap = decodeBody(t, resp)["swap"].(map[string]any)
	assert.Equal(t, "completed", swap["status"])
	assert.NotNil(t, swap["completed_at"])
	assert.Equal(t, "let's start Monday", swap["notes"])
}

func TestSwapDuplicatePendingRejected(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signup(t, app, "Alice", "alice@example.com", nil)
	_, bobID := signup(t, app, "Bob", "bob@example.com", nil)

	sendSwap(t, app, aliceToken, bobID)

	resp := doJSON(t, app, http.MethodPost, "/api/swaps/send", aliceToken, map[string]any{
		"recipient_id":    bobID,
		"requester_skill": "Go",
		"recipient_skill": "Piano",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSwapSendToSelfRejected(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, aliceID := signup(t, app, "Alice", "alice@example.com", nil)

	resp := doJSON(t, app, http.MethodPost, "/api/swaps/send", aliceToken, map[string]any{
		"recipient_id":    aliceID,
		"requester_skill": "Go",
		"recipient_skill": "Piano",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSwapPermissionGuards(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signup(t, app, "Alice", "alice@example.com", nil)
	bobToken, bobID := signup(t, app, "Bob", "bob@example.com", nil)
	eveToken, _ := signup(t, app, "Eve", "eve@example.com", nil)

	swapID := sendSwap(t, app, aliceToken, bobID)

	// Only the recipient can accept or reject.
	resp := doJSON(t, app, http.MethodPut, swapPath(swapID, "accept"), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "reject"), eveToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	// Only the requester can cancel.
	resp = doJSON(t, app, http.MethodDelete, swapPath(swapID, "cancel"), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	// Only participants can complete.
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "accept"), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "complete"), eveToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSwapDoubleResolveConflicts(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signup(t, app, "Alice", "alice@example.com", nil)
	bobToken, bobID := signup(t, app, "Bob", "bob@example.com", nil)

	swapID := sendSwap(t, app, aliceToken, bobID)

	resp := doJSON(t, app, http.MethodPut, swapPath(swapID, "accept"), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// A second resolution of the same request conflicts.
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "accept"), bobToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
	resp = doJSON(t, app, http.MethodPut, swapPath(swapID, "reject"), bobToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
	resp = doJSON(t, app, http.MethodDelete, swapPath(swapID, "cancel"), aliceToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSwapCancelThenResendAllowed(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signup(t, app, "Alice", "alice@example.com", nil)
	_, bobID := signup(t, app, "Bob", "bob@example.com", nil)

	swapID := sendSwap(t, app, aliceToken, bobID)

	resp := doJSON(t, app, http.MethodDelete, swapPath(swapID, "cancel"), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	swap := decodeBody(t, resp)["swap"].(map[string]any)
	assert.Equal(t, "cancelled", swap["status"])
	assert.NotNil(t, swap["cancelled_at"])

	// With no pending request in the way, a new one can be sent.
	sendSwap(t, app, aliceToken, bobID)
}

func TestSwapUnknownIDNotFound(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signup(t, app, "Alice", "alice@example.com", nil)

	resp := doJSON(t, app, http.MethodPut, swapPath(999, "accept"), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPut, "/api/swaps/abc/accept", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
