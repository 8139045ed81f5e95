// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes stored runs and the address helpers over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/geobatch/geobatch/address"
	"github.com/geobatch/geobatch/store"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 100
	maxListLimit     = 10_000
)

type Server struct {
	repo store.Repository
}

func NewServer(repo store.Repository) *Server {
	return &Server{repo: repo}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/api/placemarks", s.listPlacemarks)
	r.GET("/api/runs", s.listRuns)
	r.GET("/api/runs/:id", s.getRun)
	r.GET("/api/runs/:id/results", s.listResults)
	r.POST("/api/clean", s.clean)
	r.POST("/api/normalize", s.normalize)
	r.POST("/api/completeness", s.completeness)
	r.GET("/api/postcode", s.postcode)
	r.GET("/api/postcode/countries", s.postcodeCountries)

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func limitParam(ctx *gin.Context) (int, error) {
	l := ctx.Query("limit")
	if l == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(l)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}

	return min(limit, maxListLimit), nil
}

func (s *Server) listPlacemarks(ctx *gin.Context) {
	limit, err := limitParam(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	placemarks, err := s.repo.ListPlacemarks(ctx.Query("source"), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if placemarks == nil {
		placemarks = []*store.Placemark{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"placemarks": placemarks,
		"total":      len(placemarks),
	})
}

func (s *Server) listRuns(ctx *gin.Context) {
	limit, err := limitParam(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	runs, err := s.repo.ListRuns(limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if runs == nil {
		runs = []*store.Run{}
	}

	ctx.JSON(http.StatusOK, gin.H{"runs": runs})
}

// lookupRun writes the error response itself and returns nil when the run
// cannot be served.
func (s *Server) lookupRun(ctx *gin.Context) *store.Run {
	run, err := s.repo.GetRun(ctx.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return nil
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return nil
	}

	return run
}

func (s *Server) getRun(ctx *gin.Context) {
	run := s.lookupRun(ctx)
	if run == nil {
		return
	}

	ctx.JSON(http.StatusOK, run)
}

func (s *Server) listResults(ctx *gin.Context) {
	run := s.lookupRun(ctx)
	if run == nil {
		return
	}

	results, err := s.repo.ListResults(run.ID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if results == nil {
		results = []*store.Result{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"run":     run,
		"results": results,
	})
}

type CleanRequest struct {
	Text  string `json:"text" binding:"required"`
	Level string `json:"level"`
}

func (s *Server) clean(ctx *gin.Context) {
	var req CleanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	level, err := address.ParseLevel(req.Level)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"text":  address.NewCleaner(level).Clean(req.Text),
		"level": level.String(),
	})
}

type NormalizeRequest struct {
	Address  string `json:"address" binding:"required"`
	Language string `json:"language"`
}

func (s *Server) normalize(ctx *gin.Context) {
	var req NormalizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	lang := req.Language
	if lang == "" {
		lang = "es"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"address":     address.NormalizeFormat(req.Address, lang),
		"suggestions": address.SuggestCorrections(req.Address, address.DefaultMaxSuggestions),
	})
}

type CompletenessRequest struct {
	Address string `json:"address"`
}

func (s *Server) completeness(ctx *gin.Context) {
	var req CompletenessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, address.DetectIncomplete(req.Address))
}

func (s *Server) postcode(ctx *gin.Context) {
	code := ctx.Query("code")
	if strings.TrimSpace(code) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "code query parameter is required"})

		return
	}

	ctx.JSON(http.StatusOK, address.ValidatePostalCode(code, ctx.Query("country")))
}

func (s *Server) postcodeCountries(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"countries": address.SupportedPostalCountries()})
}
