package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/source"
)

type stubImportService struct {
	importFn  func(ctx context.Context, req core.ImportRequest) (core.ImportResult, error)
	resolveFn func(ctx context.Context, req core.ResolveImportErrorsRequest) (core.ImportResult, error)
}

func (s stubImportService) Import(ctx context.Context, req core.ImportRequest) (core.ImportResult, error) {
	if s.importFn == nil {
		return core.ImportResult{}, nil
	}
	return s.importFn(ctx, req)
}

func (s stubImportService) ResolveImportErrors(ctx context.Context, req core.ResolveImportErrorsRequest) (core.ImportResult, error) {
	if s.resolveFn == nil {
		return core.ImportResult{}, nil
	}
	return s.resolveFn(ctx, req)
}

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

type stubOpener struct {
	content  string
	err      error
	opened   []string
	lastRead *trackingReader
}

func (o *stubOpener) Open(_ context.Context, location string) (io.ReadCloser, error) {
	o.opened = append(o.opened, location)
	if o.err != nil {
		return nil, o.err
	}
	o.lastRead = &trackingReader{Reader: strings.NewReader(o.content)}
	return o.lastRead, nil
}

func TestImportCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.ImportResult{Success: true, SuccessCount: 2}
	called := false
	svc := stubImportService{
		importFn: func(_ context.Context, req core.ImportRequest) (core.ImportResult, error) {
			called = true
			if req.Namespace != "team-a" || !req.Overwrite {
				t.Fatalf("unexpected import request: %+v", req)
			}
			return expected, nil
		},
	}

	cmd := NewImportCommand(svc)
	collector := gocmd.NewResult[core.ImportResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ImportMessage{Request: core.ImportRequest{
		ReadStream: strings.NewReader(""),
		Namespace:  "team-a",
		Overwrite:  true,
	}})
	if err != nil {
		t.Fatalf("execute import: %v", err)
	}
	if !called {
		t.Fatalf("expected import service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.SuccessCount != 2 || !result.Success {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestResolveImportErrorsCommand_PropagatesServiceErrors(t *testing.T) {
	sentinel := errors.New("store offline")
	svc := stubImportService{
		resolveFn: func(context.Context, core.ResolveImportErrorsRequest) (core.ImportResult, error) {
			return core.ImportResult{}, sentinel
		},
	}
	cmd := NewResolveImportErrorsCommand(svc)
	err := cmd.Execute(context.Background(), ResolveImportErrorsMessage{Request: core.ResolveImportErrorsRequest{
		ReadStream: strings.NewReader(""),
	}})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestImportFromSourceCommand_OpensAndClosesStream(t *testing.T) {
	opener := &stubOpener{content: `{"type":"dashboard","id":"d"}` + "\n"}
	var received string
	svc := stubImportService{
		importFn: func(_ context.Context, req core.ImportRequest) (core.ImportResult, error) {
			content, err := io.ReadAll(req.ReadStream)
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			received = string(content)
			if req.Namespace != "team-a" || len(req.Workspaces) != 1 || !req.CreateNewCopies {
				t.Fatalf("expected options to be applied, got %+v", req)
			}
			return core.ImportResult{Success: true, SuccessCount: 1}, nil
		},
	}

	cmd := NewImportFromSourceCommand(svc, opener)
	collector := gocmd.NewResult[core.ImportResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := cmd.Execute(ctx, ImportFromSourceMessage{
		Location: "s3://imports/objects.ndjson",
		Options: ImportOptions{
			Namespace:       " team-a ",
			Workspaces:      []string{"ws-1"},
			CreateNewCopies: true,
		},
	})
	if err != nil {
		t.Fatalf("execute import from source: %v", err)
	}
	if len(opener.opened) != 1 || opener.opened[0] != "s3://imports/objects.ndjson" {
		t.Fatalf("expected location to be opened once, got %v", opener.opened)
	}
	if !strings.Contains(received, `"id":"d"`) {
		t.Fatalf("expected source content to reach the service, got %q", received)
	}
	if !opener.lastRead.closed {
		t.Fatalf("expected stream to be closed")
	}
	if result, ok := collector.Load(); !ok || result.SuccessCount != 1 {
		t.Fatalf("expected stored result, got %#v", result)
	}
}

func TestImportFromSourceCommand_MapsSourceErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category goerrors.Category
	}{
		{name: "missing", err: fmt.Errorf("%w: objects.ndjson", source.ErrNotFound), category: goerrors.CategoryNotFound},
		{name: "unreachable", err: errors.New("connection refused"), category: goerrors.CategoryExternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := NewImportFromSourceCommand(stubImportService{}, &stubOpener{err: tc.err})
			err := cmd.Execute(context.Background(), ImportFromSourceMessage{Location: "objects.ndjson"})
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope, got %T", err)
			}
			if rich.Category != tc.category {
				t.Fatalf("expected %s category, got %s", tc.category, rich.Category)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected cause to be preserved")
			}
		})
	}
}

func TestResolveImportErrorsFromSourceCommand_BuildsRequest(t *testing.T) {
	opener := &stubOpener{content: "{}"}
	svc := stubImportService{
		resolveFn: func(_ context.Context, req core.ResolveImportErrorsRequest) (core.ImportResult, error) {
			if req.Namespace != "team-a" || len(req.Retries) != 1 || !req.Retries[0].Overwrite {
				t.Fatalf("unexpected resolve request: %+v", req)
			}
			if req.ReadStream == nil {
				t.Fatalf("expected read stream")
			}
			return core.ImportResult{Success: true, SuccessCount: 1}, nil
		},
	}
	cmd := NewResolveImportErrorsFromSourceCommand(svc, opener)
	err := cmd.Execute(context.Background(), ResolveImportErrorsFromSourceMessage{
		Location:  "objects.ndjson",
		Namespace: "team-a",
		Retries:   []core.Retry{{Type: "dashboard", ID: "d", Overwrite: true}},
	})
	if err != nil {
		t.Fatalf("execute resolve from source: %v", err)
	}
	if !opener.lastRead.closed {
		t.Fatalf("expected stream to be closed")
	}
}

func TestCommands_NilDependenciesReturnRichErrors(t *testing.T) {
	var importCmd *ImportCommand
	errs := []error{
		importCmd.Execute(context.Background(), ImportMessage{}),
		NewResolveImportErrorsCommand(nil).Execute(context.Background(), ResolveImportErrorsMessage{}),
		NewImportFromSourceCommand(stubImportService{}, nil).Execute(context.Background(), ImportFromSourceMessage{}),
		NewResolveImportErrorsFromSourceCommand(nil, &stubOpener{}).Execute(context.Background(), ResolveImportErrorsFromSourceMessage{}),
	}
	for i, err := range errs {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("case %d: expected go-errors envelope, got %T", i, err)
		}
		if rich.Category != goerrors.CategoryInternal || rich.TextCode != core.ImportErrorInternal {
			t.Fatalf("case %d: unexpected error %+v", i, rich)
		}
	}
}
