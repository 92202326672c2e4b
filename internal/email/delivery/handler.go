package delivery

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	accountdomain "triagely-backend/internal/account/domain"
	accountrepo "triagely-backend/internal/account/repository"
	emaildto "triagely-backend/internal/email/dto"
	emailrepo "triagely-backend/internal/email/repository"
	"triagely-backend/internal/email/usecase"
	"triagely-backend/pkg/config"
	"triagely-backend/pkg/gmail"

	"github.com/gin-gonic/gin"
)

// manualSyncTimeout bounds the on-demand fetch so a slow provider surfaces
// a partial count instead of hanging the request.
const manualSyncTimeout = 25 * time.Second

type GmailHandler struct {
	creds       accountrepo.CredentialRepository
	messages    emailrepo.MessageRepository
	history     emailrepo.SyncHistoryRepository
	syncUsecase usecase.SyncUsecase
	gmailSvc    *gmail.Service
	cfg         *config.Config
}

func NewGmailHandler(
	creds accountrepo.CredentialRepository,
	messages emailrepo.MessageRepository,
	history emailrepo.SyncHistoryRepository,
	syncUsecase usecase.SyncUsecase,
	gmailSvc *gmail.Service,
	cfg *config.Config,
) *GmailHandler {
	return &GmailHandler{
		creds:       creds,
		messages:    messages,
		history:     history,
		syncUsecase: syncUsecase,
		gmailSvc:    gmailSvc,
		cfg:         cfg,
	}
}

// Connect returns the Google consent URL. The caller's user ID rides in
// the OAuth state so the callback knows whose account is being linked.
func (h *GmailHandler) Connect(c *gin.Context) {
	userID := c.GetString("userID")
	c.JSON(http.StatusOK, emaildto.ConnectResponse{AuthURL: h.gmailSvc.AuthCodeURL(userID)})
}

// Callback exchanges the auth code, discovers the Gmail address just
// authorised, stores the credential under gmail:<addr> and primes the
// cache so the UI has data instantly.
func (h *GmailHandler) Callback(c *gin.Context) {
	userID := c.Query("state")
	code := c.Query("code")
	if userID == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state or code"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.gmailSvc.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token exchange failed: " + err.Error()})
		return
	}

	email, err := h.gmailSvc.Profile(ctx, token.AccessToken)
	if err != nil || email == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not discover account address"})
		return
	}

	accountKey := accountdomain.AccountKeyFor(email)

	// Google only returns a refresh token on a consent screen; keep the
	// existing one when a re-link comes back without it.
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		if existing, err := h.creds.Get(userID, accountKey); err == nil && existing != nil {
			refreshToken = existing.RefreshToken
		}
	}
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no refresh token granted"})
		return
	}

	cred := &accountdomain.Credential{
		UserID:       userID,
		AccountKey:   accountKey,
		RefreshToken: refreshToken,
		AccessToken:  token.AccessToken,
		ExpiresAt:    token.Expiry,
		TokenURI:     h.gmailSvc.TokenURL(),
		ClientID:     h.gmailSvc.ClientID(),
		ClientSecret: h.gmailSvc.ClientSecret(),
		Scopes:       strings.Join(h.cfg.GmailScopes, ","),
		Email:        email,
	}
	if err := h.creds.Put(cred); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store credential: " + err.Error()})
		return
	}

	// Prime the cache for all of this user's Gmail accounts.
	primeCtx, cancel := context.WithTimeout(context.Background(), manualSyncTimeout)
	defer cancel()
	if _, err := h.syncUsecase.SyncAllForUser(primeCtx, userID, h.cfg.SyncMaxThreads); err != nil {
		log.Printf("[Gmail] prime after link failed for %s: %v", userID, err)
	}

	c.Redirect(http.StatusFound, strings.TrimRight(h.cfg.FrontendURL, "/")+"/connected?provider=gmail")
}

// FetchNow hits Google for each connected account, stores unseen threads
// and returns the number of genuinely-new rows inserted.
func (h *GmailHandler) FetchNow(c *gin.Context) {
	userID := c.GetString("userID")

	limit := h.cfg.SyncMaxThreads
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), manualSyncTimeout)
	defer cancel()

	count, err := h.syncUsecase.SyncAllForUser(ctx, userID, limit)
	if err != nil {
		// Best effort: report what made it in before the failure.
		log.Printf("[Gmail] manual fetch for %s: %v", userID, err)
	}
	c.JSON(http.StatusOK, emaildto.FetchResponse{Fetched: count})
}

// ListMessages returns the merged cached view across every linked account,
// newest first.
func (h *GmailHandler) ListMessages(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.messages.ListRecent(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]emaildto.GmailMessage, 0, len(records))
	for _, m := range records {
		subject := m.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		summary := m.AiSummary
		if summary == nil {
			summary = []string{}
		}
		checklist := m.AiChecklist
		if checklist == nil {
			checklist = []string{}
		}
		out = append(out, emaildto.GmailMessage{
			MessageID:   m.MessageID,
			Subject:     subject,
			Snippet:     m.Snippet,
			Sender:      m.Sender,
			SenderEmail: m.SenderEmail,
			DateISO:     m.DateISO,
			Plain:       m.Plain,
			Html:        m.Html,
			Urgent:      m.Urgent,
			AiSummary:   summary,
			AiChecklist: checklist,
		})
	}

	// The store does not guarantee order; newest-first comes from the
	// derived date.
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateISO > out[j].DateISO
	})

	c.JSON(http.StatusOK, out)
}

// ListAccounts returns every Gmail address the user attached.
func (h *GmailHandler) ListAccounts(c *gin.Context) {
	userID := c.GetString("userID")

	keys, err := h.creds.ListAccounts(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	addrs := make([]string, 0, len(keys))
	for _, key := range keys {
		if addr := accountdomain.EmailFromKey(key); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	c.JSON(http.StatusOK, addrs)
}

// SyncHistory exposes recent per-account sync outcomes for the caller.
func (h *GmailHandler) SyncHistory(c *gin.Context) {
	userID := c.GetString("userID")

	rows, err := h.history.ListRecent(userID, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Disconnect unlinks one account; the cached messages stay.
func (h *GmailHandler) Disconnect(c *gin.Context) {
	userID := c.GetString("userID")
	addr := c.Param("address")
	if addr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address required"})
		return
	}

	if err := h.creds.Delete(userID, accountdomain.AccountKeyFor(addr)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account disconnected"})
}
