package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resumegenius/internal/config"
	"resumegenius/internal/profile"
)

// Generator 是内容生成协作方的抽象，便于 Worker 在测试中替换实现。
type Generator interface {
	Generate(ctx context.Context, jobDescription string, snapshot *profile.Snapshot) (*Analysis, error)
}

// Analysis 是协作方返回的结构化分析结果。
// 字段名与提示词中要求的 JSON 结构一一对应；增强后的分区内容保持原始 JSON，
// 不在本层做模式校验（协作方视为黑盒）。
type Analysis struct {
	KeywordMatches      []string        `json:"keywordMatches"`
	ATSScore            int             `json:"atsScore"`
	ProfessionalSummary string          `json:"professionalSummary"`
	Suggestions         []string        `json:"suggestions"`
	HighlightedSkills   []string        `json:"highlightedSkills"`
	EnhancedExperiences json.RawMessage `json:"enhancedExperiences,omitempty"`
	EnhancedEducation   json.RawMessage `json:"enhancedEducation,omitempty"`
	EnhancedProjects    json.RawMessage `json:"enhancedProjects,omitempty"`
}

const systemInstruction = "You are an expert ATS resume optimizer that helps job seekers tailor their resumes to specific job descriptions."

// GeminiGenerator 通过 Gemini API 生成简历内容分析。
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator 构造 Gemini 客户端。
func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

// Generate 调用模型并解析 JSON 结果。
func (g *GeminiGenerator) Generate(ctx context.Context, jobDescription string, snapshot *profile.Snapshot) (*Analysis, error) {
	prompt, err := buildPrompt(jobDescription, snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.5),
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}

	analysis, err := ParseAnalysis([]byte(text))
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// ParseAnalysis 解析模型输出并约束分值范围。
func ParseAnalysis(data []byte) (*Analysis, error) {
	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if analysis.ATSScore < 0 {
		analysis.ATSScore = 0
	}
	if analysis.ATSScore > 100 {
		analysis.ATSScore = 100
	}
	return &analysis, nil
}

func buildPrompt(jobDescription string, snapshot *profile.Snapshot) (string, error) {
	profileJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile snapshot: %w", err)
	}

	var b strings.Builder
	b.WriteString("Create an ATS-optimized resume based on the following information.\n\n")
	b.WriteString("JOB DESCRIPTION:\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\nCANDIDATE PROFILE:\n")
	b.Write(profileJSON)
	b.WriteString("\n\nI need you to:\n")
	b.WriteString("1. Extract 10 relevant keywords from the job description\n")
	b.WriteString("2. Generate a professional summary (max 3 sentences) tailored to match the job\n")
	b.WriteString("3. Calculate an ATS match score (0-100) based on keyword matches and profile strength\n")
	b.WriteString("4. Provide 5 specific improvement suggestions for the resume\n")
	b.WriteString("5. Highlight which skills from the candidate's profile match the job description\n")
	b.WriteString("6. Add quantifiable achievements to work experiences where applicable\n\n")
	b.WriteString("Return the response as a JSON object with the following structure:\n")
	b.WriteString(`{
  "keywordMatches": ["keyword1", "keyword2"],
  "atsScore": 85,
  "professionalSummary": "...",
  "suggestions": ["suggestion1", "suggestion2"],
  "highlightedSkills": ["skill1", "skill2"],
  "enhancedExperiences": [],
  "enhancedEducation": [],
  "enhancedProjects": []
}`)
	return b.String(), nil
}
