package core

import (
	"context"
	"strings"
)

// TriageResult is the symptom checker's answer. An empty Department means no
// automatic suggestion; the user picks one manually.
type TriageResult struct {
	Analysis   string `json:"analysis"`
	Department string `json:"department"`
}

// SymptomChecker analyses free-text symptoms and suggests a department.
type SymptomChecker struct {
	gateway     *Gateway
	departments []string
}

func NewSymptomChecker(gateway *Gateway) *SymptomChecker {
	return &SymptomChecker{gateway: gateway, departments: Departments}
}

// Check rejects only empty input. A transport error becomes TriageErrorText
// and no department suggestion.
func (s *SymptomChecker) Check(ctx context.Context, symptoms string) (*TriageResult, error) {
	if strings.TrimSpace(symptoms) == "" {
		return nil, ErrEmptyMessage
	}
	analysis, err := s.gateway.AnalyzeText(ctx, symptoms)
	if err != nil {
		return &TriageResult{Analysis: TriageErrorText}, nil
	}
	return &TriageResult{
		Analysis:   analysis,
		Department: s.gateway.Classify(ctx, symptoms, s.departments),
	}, nil
}
