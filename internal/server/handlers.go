package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heroindex/internal"
	"heroindex/internal/directory"
	"heroindex/internal/notes"
	"heroindex/internal/users"
)

type heroList struct {
	Total   int             `json:"total"`
	Count   int             `json:"count"`
	Summary string          `json:"summary"`
	Heroes  []internal.Hero `json:"heroes"`
}

type noteInput struct {
	HeroAPIID   string `json:"heroApiId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) listHeroes(c *gin.Context) {
	key, dir, err := directory.ParseSortKey(c.Query("sort"), c.Query("dir"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	all, err := s.db.ListAllHeroes(s.cfg.HeroBatchSize)
	if err != nil {
		s.internalError(c, err)
		return
	}

	heroes := directory.Sort(directory.FilterByName(all, c.Query("q")), key, dir)
	c.JSON(http.StatusOK, heroList{
		Total:   len(all),
		Count:   len(heroes),
		Summary: directory.Summary(len(heroes), len(all), key, dir),
		Heroes:  nonNilHeroes(heroes),
	})
}

func (s *Server) getHero(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hero id must be an integer"})
		return
	}
	hero, err := s.db.GetHero(id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if hero == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "hero not found"})
		return
	}
	c.JSON(http.StatusOK, hero)
}

// listTeams groups heroes by canonical team. Publisher and alignment
// filters ignore case.
func (s *Server) listTeams(c *gin.Context) {
	publisher := strings.TrimSpace(c.Query("publisher"))
	alignment := strings.TrimSpace(c.Query("alignment"))

	var (
		heroes []internal.Hero
		err    error
	)
	if publisher != "" && alignment != "" {
		heroes, err = s.db.ListHeroesByPublisherAlignment(publisher, alignment)
	} else {
		heroes, err = s.db.ListAllHeroes(s.cfg.HeroBatchSize)
		heroes = directory.FilterByPublisherAlignment(heroes, publisher, alignment)
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	groups := directory.GroupByTeam(heroes)
	if groups == nil {
		groups = []internal.TeamGroup{}
	}
	c.JSON(http.StatusOK, groups)
}

func (s *Server) canonicalize(c *gin.Context) {
	var raw []any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array"})
		return
	}
	c.JSON(http.StatusOK, s.canon.Canonicalize(raw).Sorted())
}

func (s *Server) leaderboard(c *gin.Context) {
	entries, err := s.users.Leaderboard(c.Query("q"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) signup(c *gin.Context) {
	var in users.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := s.users.Signup(in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) updateBio(c *gin.Context) {
	var body struct {
		Bio string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.users.UpdateBio(c.Param("uid"), body.Bio); err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.users.Get(c.Param("uid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// listNotes returns a flat list, or a map keyed by hero id with ?grouped=true.
func (s *Server) listNotes(c *gin.Context) {
	uid := c.Param("uid")
	if grouped, _ := strconv.ParseBool(c.Query("grouped")); grouped {
		byHero, err := s.notes.GroupByHero(uid)
		if err != nil {
			s.internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, byHero)
		return
	}

	list, err := s.notes.ListByHero(uid, c.Query("heroId"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	if list == nil {
		list = []internal.HeroNote{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) addNote(c *gin.Context) {
	var in noteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	note, err := s.notes.Add(c.Param("uid"), in.HeroAPIID, in.Title, in.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) updateNote(c *gin.Context) {
	var in noteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	note, err := s.notes.Update(c.Param("uid"), c.Param("id"), in.Title, in.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) deleteNote(c *gin.Context) {
	if err := s.notes.Delete(c.Param("uid"), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// importRoster reconciles an uploaded roster file. The extension of the
// uploaded filename selects the parser.
func (s *Server) importRoster(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}

	dir, err := os.MkdirTemp("", "roster-*")
	if err != nil {
		s.internalError(c, err)
		return
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		s.internalError(c, err)
		return
	}

	report, err := s.roster.Import(dst)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	report.Path = fh.Filename
	c.JSON(http.StatusOK, report)
}

// fail maps service errors to status codes.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrEmptyNote), errors.Is(err, users.ErrMissingCredentials), errors.Is(err, users.ErrInvalidStats):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, notes.ErrNotFound), errors.Is(err, notes.ErrNoUser), errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.internalError(c, err)
	}
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()), zap.String("requestId", c.GetString(requestIDKey)))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func nonNilHeroes(heroes []internal.Hero) []internal.Hero {
	if heroes == nil {
		return []internal.Hero{}
	}
	return heroes
}
