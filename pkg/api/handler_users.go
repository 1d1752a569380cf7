package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// userEntityID derives the deterministic Entity id a user_id resolves
// to, mirroring the convention used everywhere a user's events are
// projected onto graph state (pkg/consumers/extraction, pkg/consumers/projection).
func userEntityID(userID string) string {
	return domain.EntityID("user:"+userID, domain.EntityTypeUser)
}

// getUserProfileHandler handles GET /v1/users/{user_id}/profile.
func (s *Server) getUserProfileHandler(c *gin.Context) {
	profile, found, err := s.graph.ProfileByUser(c.Request.Context(), userEntityID(c.Param("user_id")))
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get user profile", err))
		return
	}
	if !found {
		writeError(c, domain.NewError(domain.ErrNotFound, "no profile for user", nil))
		return
	}
	c.JSON(http.StatusOK, profile)
}

// getUserPreferencesHandler handles GET /v1/users/{user_id}/preferences.
func (s *Server) getUserPreferencesHandler(c *gin.Context) {
	prefs, err := s.graph.PreferencesByUser(c.Request.Context(), userEntityID(c.Param("user_id")))
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get user preferences", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// getUserSkillsHandler handles GET /v1/users/{user_id}/skills.
func (s *Server) getUserSkillsHandler(c *gin.Context) {
	skills, err := s.graph.SkillsByUser(c.Request.Context(), userEntityID(c.Param("user_id")))
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get user skills", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

// getUserPatternsHandler handles GET /v1/users/{user_id}/patterns.
func (s *Server) getUserPatternsHandler(c *gin.Context) {
	patterns, err := s.graph.PatternsByUser(c.Request.Context(), userEntityID(c.Param("user_id")))
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get user patterns", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns})
}

// getUserInterestsHandler handles GET /v1/users/{user_id}/interests.
func (s *Server) getUserInterestsHandler(c *gin.Context) {
	interests, err := s.graph.InterestsByUser(c.Request.Context(), userEntityID(c.Param("user_id")))
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get user interests", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": interests})
}

// userDataExport is the full GDPR export bundle for a user: everything
// the personalization views expose, assembled in one call instead of
// four round trips.
type userDataExport struct {
	Profile     interface{} `json:"profile,omitempty"`
	Preferences interface{} `json:"preferences"`
	Skills      interface{} `json:"skills"`
	Patterns    interface{} `json:"patterns"`
	Interests   interface{} `json:"interests"`
}

// exportUserDataHandler handles GET /v1/users/{user_id}/data.
func (s *Server) exportUserDataHandler(c *gin.Context) {
	ctx := c.Request.Context()
	entityID := userEntityID(c.Param("user_id"))

	profile, _, err := s.graph.ProfileByUser(ctx, entityID)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "export user data: profile", err))
		return
	}
	prefs, err := s.graph.PreferencesByUser(ctx, entityID)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "export user data: preferences", err))
		return
	}
	skills, err := s.graph.SkillsByUser(ctx, entityID)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "export user data: skills", err))
		return
	}
	patterns, err := s.graph.PatternsByUser(ctx, entityID)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "export user data: patterns", err))
		return
	}
	interests, err := s.graph.InterestsByUser(ctx, entityID)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "export user data: interests", err))
		return
	}

	c.JSON(http.StatusOK, userDataExport{
		Profile:     profile,
		Preferences: prefs,
		Skills:      skills,
		Patterns:    patterns,
		Interests:   interests,
	})
}

// eraseUserDataHandler handles DELETE /v1/users/{user_id}/data: the
// graph-side cascade (pkg/graphstore's EraseUserData) plus crypto-
// shredding every payload key this user's blobs were encrypted under,
// so a revoked key makes them permanently unrecoverable even though the
// ciphertext rows themselves aren't touched.
func (s *Server) eraseUserDataHandler(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("user_id")

	if err := s.graph.EraseUserData(ctx, userEntityID(userID)); err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "erase user data", err))
		return
	}

	keysRevoked, err := s.payloads.RevokeUserKeys(ctx, userID)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "revoke user payload keys", err))
		return
	}

	c.JSON(http.StatusOK, eraseResponse{UserID: userID, GraphErased: true, KeysRevoked: keysRevoked})
}
