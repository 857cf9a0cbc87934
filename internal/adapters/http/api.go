package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/domain"
	"github.com/studyhub-app/studyhub/internal/storage"
)

type credentials struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (a *API) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and password (8+ chars) required"})
		return
	}
	user, err := a.Store.CreateUser(c.Request.Context(), req.Name, req.Password)
	if errors.Is(err, storage.ErrUserExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.startSession(c, user)
}

func (a *API) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and password required"})
		return
	}
	user, err := a.Store.AuthUser(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": storage.ErrBadCredential.Error()})
		return
	}
	a.startSession(c, user)
}

// startSession sets the login cookie and issues the socket token the
// client presents over the WebSocket's authenticate event.
func (a *API) startSession(c *gin.Context, user *domain.User) {
	s := sessions.Default(c)
	s.Set(sessionUserKey, string(user.ID))
	if err := s.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	token, err := a.Tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "socketToken": token})
}

func (a *API) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	_ = s.Save()
	c.Status(http.StatusNoContent)
}

func ownerID(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetString("user_id"))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (a *API) listNotes(c *gin.Context) {
	notes, err := a.Store.ListNotes(c.Request.Context(), ownerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (a *API) createNote(c *gin.Context) {
	var n domain.Note
	if err := c.ShouldBindJSON(&n); err != nil || n.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	n.OwnerID = ownerID(c)
	if err := a.Store.CreateNote(c.Request.Context(), &n); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (a *API) updateNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var n domain.Note
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	n.ID, n.OwnerID = id, ownerID(c)
	if err := a.Store.UpdateNote(c.Request.Context(), &n); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (a *API) deleteNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.Store.DeleteNote(c.Request.Context(), ownerID(c), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listFlashcards(c *gin.Context) {
	cards, err := a.Store.ListFlashcards(c.Request.Context(), ownerID(c), c.Query("deck"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcards": cards})
}

func (a *API) createFlashcard(c *gin.Context) {
	var f domain.Flashcard
	if err := c.ShouldBindJSON(&f); err != nil || f.Front == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "front required"})
		return
	}
	f.OwnerID = ownerID(c)
	if err := a.Store.CreateFlashcard(c.Request.Context(), &f); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (a *API) deleteFlashcard(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.Store.DeleteFlashcard(c.Request.Context(), ownerID(c), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listHomework(c *gin.Context) {
	hw, err := a.Store.ListHomework(c.Request.Context(), ownerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"homework": hw})
}

func (a *API) createHomework(c *gin.Context) {
	var hw domain.Homework
	if err := c.ShouldBindJSON(&hw); err != nil || hw.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	hw.OwnerID = ownerID(c)
	if err := a.Store.CreateHomework(c.Request.Context(), &hw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, hw)
}

// summarizeHomework runs the collaborator off the request goroutine and
// persists the result; the client polls the homework record for it.
func (a *API) summarizeHomework(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	owner := ownerID(c)
	hw, err := a.Store.GetHomework(c.Request.Context(), owner, id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		summary, err := a.Summarize(ctx, hw.Text)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Int64("homework", id).Msg("summarize failed")
			return
		}
		if err := a.Store.SetHomeworkSummary(ctx, owner, id, summary); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Int64("homework", id).Msg("summary save failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "summarizing"})
}

func (a *API) saveQuiz(c *gin.Context) {
	var def domain.QuizDef
	if err := c.ShouldBindJSON(&def); err != nil || len(def.Questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one question required"})
		return
	}
	def.OwnerID = ownerID(c)
	if err := a.Store.SaveQuizDef(c.Request.Context(), &def); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": def.ID, "title": def.Title})
}

func (a *API) getQuiz(c *gin.Context) {
	def, err := a.Store.QuizDef(c.Request.Context(), domain.RoomID(c.Param("id")))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Hide answers from participants fetching the definition.
	if def.OwnerID != ownerID(c) {
		for i := range def.Questions {
			def.Questions[i].Correct = -1
		}
	}
	c.JSON(http.StatusOK, def)
}
