package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/mlmodel"
	"github.com/hs170703/insightfull/pkg/models"
)

// TargetAnalyzer infers the task type of a target column
type TargetAnalyzer interface {
	AnalyzeTarget(username, filename, targetColumn string) (*mlmodel.TargetAnalysis, error)
}

// MCPDeps holds dependencies for the MCP server. Every tool acts on behalf
// of Username.
type MCPDeps struct {
	Username  string
	Predictor Predictor
	Analyzer  TargetAnalyzer
	Store     metadatastore.MetadataStore
	Uploads   *Uploader
}

// NewMCPServer creates an MCP server exposing upload, analysis, training and
// stored results as tools
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"insightfull",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("inSightFull trains and evaluates a model on an uploaded CSV file. "+
			"Upload a file, optionally analyze a target column, then predict."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("upload_file",
			mcp.WithDescription("Parse a local CSV file and store it for training."),
			mcp.WithString("path", mcp.Description("Path of the CSV file on this machine"), mcp.Required()),
			mcp.WithString("filename", mcp.Description("Name to store the file under (defaults to the base name of path)")),
		),
		mcpUploadFile(deps),
	)

	s.AddTool(
		mcp.NewTool("list_files",
			mcp.WithDescription("List uploaded files with their row, column and null counts."),
		),
		mcpListFiles(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_target",
			mcp.WithDescription("Report whether a target column would be treated as classification or regression."),
			mcp.WithString("filename", mcp.Description("Uploaded file name"), mcp.Required()),
			mcp.WithString("target_column", mcp.Description("Column to predict"), mcp.Required()),
		),
		mcpAnalyzeTarget(deps),
	)

	s.AddTool(
		mcp.NewTool("predict",
			mcp.WithDescription("Train and evaluate a model on an uploaded file and store the result."),
			mcp.WithString("filename", mcp.Description("Uploaded file name"), mcp.Required()),
			mcp.WithString("target_column", mcp.Description("Column to predict"), mcp.Required()),
			mcp.WithString("model_type",
				mcp.Description("Model to train"),
				mcp.Enum(
					string(models.ModelTypeLinearRegression),
					string(models.ModelTypeLogisticRegression),
					string(models.ModelTypeNaiveBayes),
				),
			),
			mcp.WithBoolean("include_charts", mcp.Description("Include base64 PNG charts in the result (default false)")),
		),
		mcpPredict(deps),
	)

	s.AddTool(
		mcp.NewTool("list_results",
			mcp.WithDescription("List stored evaluation results, newest first."),
		),
		mcpListResults(deps),
	)

	s.AddTool(
		mcp.NewTool("get_result",
			mcp.WithDescription("Fetch one stored evaluation result by id."),
			mcp.WithString("id", mcp.Description("Result id"), mcp.Required()),
		),
		mcpGetResult(deps),
	)

	return s
}

func mcpUploadFile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}
		filename := req.GetString("filename", filepath.Base(path))

		data, err := os.ReadFile(path)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read %s: %v", path, err)), nil
		}
		resp, err := deps.Uploads.Ingest(deps.Username, filename, "text/csv", data)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(resp)
	}
}

func mcpListFiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		files, err := deps.Store.ListUserFiles(deps.Username)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list files: %v", err)), nil
		}
		if files == nil {
			files = []*models.UserFile{}
		}
		return mcpJSON(files)
	}
}

func mcpAnalyzeTarget(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := req.RequireString("filename")
		if err != nil {
			return mcpError("filename is required"), nil
		}
		target, err := req.RequireString("target_column")
		if err != nil {
			return mcpError("target_column is required"), nil
		}

		analysis, err := deps.Analyzer.AnalyzeTarget(deps.Username, filename, target)
		if err != nil {
			return mcpPipelineError(err), nil
		}
		return mcpJSON(analysis)
	}
}

func mcpPredict(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := req.RequireString("filename")
		if err != nil {
			return mcpError("filename is required"), nil
		}
		target, err := req.RequireString("target_column")
		if err != nil {
			return mcpError("target_column is required"), nil
		}

		result, err := deps.Predictor.Predict(deps.Username, &models.PredictionRequest{
			Filename:     filename,
			TargetColumn: target,
			ModelType:    models.ModelType(req.GetString("model_type", "")),
		})
		if err != nil {
			return mcpPipelineError(err), nil
		}
		if !req.GetBool("include_charts", false) {
			trimmed := *result
			trimmed.Charts = nil
			result = &trimmed
		}
		return mcpJSON(result)
	}
}

func mcpListResults(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		results, err := deps.Store.ListResultsByUser(deps.Username)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list results: %v", err)), nil
		}
		if results == nil {
			results = []*models.StoredResult{}
		}
		return mcpJSON(results)
	}
}

func mcpGetResult(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		result, err := deps.Store.GetResult(deps.Username, id)
		if err != nil {
			if errors.Is(err, metadatastore.ErrNotFound) {
				return mcpError("Result not found"), nil
			}
			return mcpError(fmt.Sprintf("failed to get result: %v", err)), nil
		}
		return mcpJSON(result)
	}
}

func mcpPipelineError(err error) *mcp.CallToolResult {
	pe, ok := models.AsPipelineError(err)
	if !ok {
		pe = models.NewInternalError(err)
	}
	return mcpError(fmt.Sprintf("%s (%s)", pe.Message, pe.Code))
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcpText(string(data)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
