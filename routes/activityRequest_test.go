package routes

import (
	"fmt"
	"net/http"
	"testing"

	"meetup-app-server/models"
	"meetup-app-server/storage"
)

func requestsPath(activityID uint) string {
	return fmt.Sprintf("/api/activity/%d/requests", activityID)
}

func respondPath(requestID uint) string {
	return fmt.Sprintf("/api/requests/%d/respond", requestID)
}

func TestRequestToJoinCreatesWaitingRequest(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	activity := createTestActivity(t, host.ID, "Board Games")

	resp := doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var request models.ActivityRequest
	if err := storage.DB.Where("activity_id = ? AND user_id = ?", activity.ID, guest.ID).First(&request).Error; err != nil {
		t.Fatalf("request row not created: %v", err)
	}
	if request.Status != "waiting" {
		t.Fatalf("expected status waiting, got %q", request.Status)
	}
	if request.RespondedAt != nil {
		t.Fatalf("new request should not have a decision timestamp")
	}

	var notification models.Notification
	if err := storage.DB.Where("user_id = ? AND type = ?", host.ID, "request_received").First(&notification).Error; err != nil {
		t.Fatalf("host notification not created: %v", err)
	}
}

func TestRequestToJoinRejectsDuplicate(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	activity := createTestActivity(t, host.ID, "Board Games")

	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	resp := doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)

	body := decodeBody(t, resp)
	if body["success"] != false || body["error"] != "already_requested" {
		t.Fatalf("expected already_requested, got %s", resp.Body.String())
	}

	var count int64
	storage.DB.Model(&models.ActivityRequest{}).
		Where("activity_id = ? AND user_id = ?", activity.ID, guest.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one request row, got %d", count)
	}
}

func TestRequestToJoinRejectsHost(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	activity := createTestActivity(t, host.ID, "Board Games")

	resp := doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(host.ID), nil)
	body := decodeBody(t, resp)
	if body["success"] != false || body["error"] != "own_activity" {
		t.Fatalf("expected own_activity, got %s", resp.Body.String())
	}
}

func TestRequestToJoinRejectsEndedActivity(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	activity := createTestActivity(t, host.ID, "Board Games")
	doJSON(t, app, http.MethodPost, activityPath(activity.ID)+"/end", signTestToken(host.ID), nil)

	resp := doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	body := decodeBody(t, resp)
	if body["error"] != "activity_ended" {
		t.Fatalf("expected activity_ended, got %s", resp.Body.String())
	}
}

func TestAcceptRequestUpdatesOnlyTargetAndRoster(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	alice := createTestUser(t, "alice@example.com", "alice")
	bob := createTestUser(t, "bob@example.com", "bob")
	activity := createTestActivity(t, host.ID, "Board Games")

	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(alice.ID), nil)
	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(bob.ID), nil)

	var aliceRequest models.ActivityRequest
	storage.DB.Where("activity_id = ? AND user_id = ?", activity.ID, alice.ID).First(&aliceRequest)

	resp := doJSON(t, app, http.MethodPost, respondPath(aliceRequest.ID), signTestToken(host.ID),
		map[string]string{"action": "accept"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	storage.DB.First(&aliceRequest, aliceRequest.ID)
	if aliceRequest.Status != "accepted" {
		t.Fatalf("expected accepted, got %q", aliceRequest.Status)
	}
	if aliceRequest.RespondedAt == nil {
		t.Fatalf("accepted request should carry a decision timestamp")
	}

	var bobRequest models.ActivityRequest
	storage.DB.Where("activity_id = ? AND user_id = ?", activity.ID, bob.ID).First(&bobRequest)
	if bobRequest.Status != "waiting" {
		t.Fatalf("other requests must stay waiting, got %q", bobRequest.Status)
	}

	var chat models.Chat
	storage.DB.Where("activity_id = ?", activity.ID).First(&chat)
	if !chat.HasParticipant(alice.ID) {
		t.Fatalf("accepted requester missing from chat roster: %v", chat.ParticipantIDs())
	}
	if chat.HasParticipant(bob.ID) {
		t.Fatalf("waiting requester must not be on the roster")
	}

	var notification models.Notification
	if err := storage.DB.Where("user_id = ? AND type = ?", alice.ID, "request_accepted").First(&notification).Error; err != nil {
		t.Fatalf("acceptance notification not created: %v", err)
	}
}

func TestRejectRequestLeavesRosterAlone(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	activity := createTestActivity(t, host.ID, "Board Games")

	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	var request models.ActivityRequest
	storage.DB.Where("activity_id = ? AND user_id = ?", activity.ID, guest.ID).First(&request)

	doJSON(t, app, http.MethodPost, respondPath(request.ID), signTestToken(host.ID),
		map[string]string{"action": "reject"})

	storage.DB.First(&request, request.ID)
	if request.Status != "rejected" {
		t.Fatalf("expected rejected, got %q", request.Status)
	}

	var chat models.Chat
	storage.DB.Where("activity_id = ?", activity.ID).First(&chat)
	if chat.HasParticipant(guest.ID) {
		t.Fatalf("rejected requester must not join the roster")
	}
}

func TestRespondForbiddenForNonHost(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	stranger := createTestUser(t, "stranger@example.com", "stranger")
	activity := createTestActivity(t, host.ID, "Board Games")

	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	var request models.ActivityRequest
	storage.DB.Where("activity_id = ? AND user_id = ?", activity.ID, guest.ID).First(&request)

	resp := doJSON(t, app, http.MethodPost, respondPath(request.ID), signTestToken(stranger.ID),
		map[string]string{"action": "accept"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}

	storage.DB.First(&request, request.ID)
	if request.Status != "waiting" {
		t.Fatalf("request must stay waiting, got %q", request.Status)
	}
}

func TestRespondTwiceFlagsAlreadyProcessed(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	activity := createTestActivity(t, host.ID, "Board Games")

	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	var request models.ActivityRequest
	storage.DB.Where("activity_id = ? AND user_id = ?", activity.ID, guest.ID).First(&request)

	doJSON(t, app, http.MethodPost, respondPath(request.ID), signTestToken(host.ID),
		map[string]string{"action": "accept"})
	resp := doJSON(t, app, http.MethodPost, respondPath(request.ID), signTestToken(host.ID),
		map[string]string{"action": "reject"})

	body := decodeBody(t, resp)
	if body["error"] != "request_already_processed" {
		t.Fatalf("expected request_already_processed, got %s", resp.Body.String())
	}

	storage.DB.First(&request, request.ID)
	if request.Status != "accepted" {
		t.Fatalf("second decision must not overwrite the first, got %q", request.Status)
	}
}

func TestGetActivityRequestsHostOnlyWithProfiles(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	host := createTestUser(t, "host@example.com", "host")
	guest := createTestUser(t, "guest@example.com", "guest")
	activity := createTestActivity(t, host.ID, "Board Games")

	doJSON(t, app, http.MethodPost, requestsPath(activity.ID), signTestToken(guest.ID), nil)

	resp := doJSON(t, app, http.MethodGet, requestsPath(activity.ID), signTestToken(guest.ID), nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("non-host listing requests: expected 403, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodGet, requestsPath(activity.ID), signTestToken(host.ID), nil)
	body := decodeBody(t, resp)
	items, _ := body["requests"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 request, got %d: %s", len(items), resp.Body.String())
	}
	first := items[0].(map[string]interface{})
	profile := first["profile"].(map[string]interface{})
	if profile["username"] != "guest" {
		t.Fatalf("expected requester profile resolved, got %v", profile)
	}
}
