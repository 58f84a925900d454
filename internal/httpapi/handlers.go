package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chat-platform/internal/auth"
	"chat-platform/internal/call"
	"chat-platform/internal/dm"
	"chat-platform/internal/group"
	"chat-platform/internal/message"
	"chat-platform/internal/presence"
	"chat-platform/internal/user"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Tokens   *auth.Manager
	Users    *user.Service
	Groups   *group.Service
	DMs      *dm.Service
	Messages *message.Service
	Calls    *call.Service
	Presence *presence.Tracker
}

// --- Responses ---

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	Status        string    `json:"status"`
	CurrentCallID string    `json:"currentCallId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (h Handlers) userResponse(u user.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Status:      string(h.Presence.Status(u.ID)),
		CreatedAt:   u.CreatedAt,
	}
	if callID, ok := h.Presence.CurrentCall(u.ID); ok {
		resp.CurrentCallID = callID
	}
	return resp
}

type dmResponse struct {
	dm.Conversation
	OtherUser *userResponse `json:"otherUser,omitempty"`
}

func (h Handlers) dmResponse(c *gin.Context, conv dm.Conversation, viewerID string) dmResponse {
	resp := dmResponse{Conversation: conv}
	if other, err := h.Users.FindByID(c.Request.Context(), conv.OtherParticipant(viewerID)); err == nil {
		u := h.userResponse(other)
		resp.OtherUser = &u
	}
	return resp
}

// writeError maps service sentinel errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, group.ErrNotFound),
		errors.Is(err, dm.ErrNotFound),
		errors.Is(err, message.ErrNotFound),
		errors.Is(err, call.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, call.ErrUserBusy),
		errors.Is(err, call.ErrCallInProgress):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, message.ErrForbidden),
		errors.Is(err, call.ErrNotMember):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, call.ErrInvalidState),
		errors.Is(err, call.ErrNotParticipant),
		errors.Is(err, user.ErrInvalidArgument),
		errors.Is(err, group.ErrInvalidArgument),
		errors.Is(err, dm.ErrInvalidArgument),
		errors.Is(err, message.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func currentUserID(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return uid, true
}

// --- Auth ---

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	u, err := h.Users.Register(c.Request.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	pair, err := h.Tokens.IssuePair(time.Now(), u.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         h.userResponse(u),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	pair, err := h.Tokens.IssuePair(time.Now(), u.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         h.userResponse(u),
	})
}

// --- Users ---

func (h Handlers) ListUsers(c *gin.Context) {
	users, err := h.Users.FindAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, h.userResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (h Handlers) GetUser(c *gin.Context) {
	u, err := h.Users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.userResponse(u))
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

func (h Handlers) UpdateMe(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.UpdateProfile(c.Request.Context(), uid, req.DisplayName, req.AvatarURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.userResponse(u))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateMyStatus lets a connected client set itself AWAY and back. IN_CALL
// and OFFLINE are owned by the call orchestrator and the connection
// lifecycle, never set directly.
func (h Handlers) UpdateMyStatus(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	status := presence.Status(req.Status)
	if status != presence.StatusOnline && status != presence.StatusAway {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status must be ONLINE or AWAY"})
		return
	}
	h.Presence.UpdateStatus(c.Request.Context(), uid, status)
	c.JSON(http.StatusOK, gin.H{"userId": uid, "status": string(status)})
}

// --- Groups ---

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"memberIds"`
}

func (h Handlers) CreateGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	g, err := h.Groups.Create(c.Request.Context(), req.Name, req.Description, uid, req.MemberIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h Handlers) ListMyGroups(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	groups, err := h.Groups.FindByUser(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h Handlers) GetGroup(c *gin.Context) {
	g, err := h.Groups.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type addMemberRequest struct {
	UserID string `json:"userId"`
}

// requireGroupAdmin loads the group and checks the caller is its admin.
func (h Handlers) requireGroupAdmin(c *gin.Context, groupID string) (group.Group, bool) {
	uid, ok := currentUserID(c)
	if !ok {
		return group.Group{}, false
	}
	g, err := h.Groups.FindByID(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err)
		return group.Group{}, false
	}
	if g.AdminID != uid {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return group.Group{}, false
	}
	return g, true
}

func (h Handlers) AddGroupMember(c *gin.Context) {
	if _, ok := h.requireGroupAdmin(c, c.Param("id")); !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}
	g, err := h.Groups.AddMember(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h Handlers) RemoveGroupMember(c *gin.Context) {
	if _, ok := h.requireGroupAdmin(c, c.Param("id")); !ok {
		return
	}
	g, err := h.Groups.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h Handlers) DeleteGroup(c *gin.Context) {
	if _, ok := h.requireGroupAdmin(c, c.Param("id")); !ok {
		return
	}
	if err := h.Groups.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Direct conversations ---

type createDMRequest struct {
	RecipientID string `json:"recipientId"`
}

func (h Handlers) CreateDM(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createDMRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RecipientID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "recipientId required"})
		return
	}
	if _, err := h.Users.FindByID(c.Request.Context(), req.RecipientID); err != nil {
		writeError(c, err)
		return
	}
	conv, err := h.DMs.CreateOrGet(c.Request.Context(), uid, req.RecipientID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dmResponse(c, conv, uid))
}

func (h Handlers) ListMyDMs(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	convs, err := h.DMs.FindByUser(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dmResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, h.dmResponse(c, conv, uid))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// --- Messages ---

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h Handlers) SendGroupMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := h.Messages.SendToGroup(c.Request.Context(), uid, c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) SendDMMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := h.Messages.SendToDM(c.Request.Context(), uid, c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	return limit, offset
}

func (h Handlers) ListGroupMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	msgs, hasMore, err := h.Messages.ListByGroup(c.Request.Context(), uid, c.Param("id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "hasMore": hasMore})
}

func (h Handlers) ListDMMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	msgs, hasMore, err := h.Messages.ListByDM(c.Request.Context(), uid, c.Param("id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "hasMore": hasMore})
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func (h Handlers) EditMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := h.Messages.Edit(c.Request.Context(), uid, c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Handlers) DeleteMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.Messages.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Calls ---

type initiateCallRequest struct {
	RecipientID string `json:"recipientId"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RecipientID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "recipientId required"})
		return
	}
	if _, err := h.Users.FindByID(c.Request.Context(), req.RecipientID); err != nil {
		writeError(c, err)
		return
	}
	out, err := h.Calls.InitiateDirect(c.Request.Context(), uid, req.RecipientID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"call": h.Calls.Payload(c.Request.Context(), out)})
}

// callTransition covers the accept/reject/end family, which share a shape.
func (h Handlers) callTransition(c *gin.Context, op func(ctx *gin.Context, callID, userID string) (call.Call, error)) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	out, err := op(c, c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": h.Calls.Payload(c.Request.Context(), out)})
}

func (h Handlers) AcceptCall(c *gin.Context) {
	h.callTransition(c, func(c *gin.Context, callID, userID string) (call.Call, error) {
		return h.Calls.Accept(c.Request.Context(), callID, userID)
	})
}

func (h Handlers) RejectCall(c *gin.Context) {
	h.callTransition(c, func(c *gin.Context, callID, userID string) (call.Call, error) {
		return h.Calls.Reject(c.Request.Context(), callID, userID)
	})
}

func (h Handlers) EndCall(c *gin.Context) {
	h.callTransition(c, func(c *gin.Context, callID, userID string) (call.Call, error) {
		return h.Calls.End(c.Request.Context(), callID, userID)
	})
}

func (h Handlers) GetCall(c *gin.Context) {
	out, err := h.Calls.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": h.Calls.Payload(c.Request.Context(), out)})
}

func (h Handlers) StartGroupCall(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	out, err := h.Calls.StartGroup(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"call": h.Calls.Payload(c.Request.Context(), out)})
}

func (h Handlers) JoinGroupCall(c *gin.Context) {
	h.callTransition(c, func(c *gin.Context, _ string, userID string) (call.Call, error) {
		return h.Calls.JoinGroup(c.Request.Context(), c.Param("callId"), userID)
	})
}

func (h Handlers) LeaveGroupCall(c *gin.Context) {
	h.callTransition(c, func(c *gin.Context, _ string, userID string) (call.Call, error) {
		return h.Calls.LeaveGroup(c.Request.Context(), c.Param("callId"), userID)
	})
}

func (h Handlers) MuteGroupCall(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	muted, err := strconv.ParseBool(c.DefaultQuery("muted", "true"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "muted must be a boolean"})
		return
	}
	out, err := h.Calls.ToggleMute(c.Request.Context(), c.Param("callId"), uid, muted)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": h.Calls.Payload(c.Request.Context(), out)})
}
