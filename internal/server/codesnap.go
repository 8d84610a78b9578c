package server

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/codesnap/constants"
	"github.com/joseph-ayodele/codesnap/internal/analysis"
	"github.com/joseph-ayodele/codesnap/internal/common"
	"github.com/joseph-ayodele/codesnap/internal/extract"
	"github.com/joseph-ayodele/codesnap/internal/pipeline"
	"github.com/joseph-ayodele/codesnap/internal/repository"
)

// maxCodeRunes bounds snippets sent to Explain and Score.
const maxCodeRunes = 100_000

// Metadata keys read from incoming calls.
const (
	MetadataFilename  = "x-filename"
	MetadataRequestID = "x-request-id"
)

// CodeSnapService implements CodeSnapServer.
type CodeSnapService struct {
	processor *pipeline.Processor
	scans     repository.ScanRepository
	logger    *slog.Logger
}

// NewCodeSnapService serves proc; scans may be nil when history is disabled.
func NewCodeSnapService(proc *pipeline.Processor, scans repository.ScanRepository, logger *slog.Logger) *CodeSnapService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeSnapService{processor: proc, scans: scans, logger: logger}
}

var _ CodeSnapServer = (*CodeSnapService)(nil)

func (s *CodeSnapService) Extract(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ctx, img, err := s.image(ctx, req)
	if err != nil {
		return nil, err
	}
	res := s.processor.Extract.Extract(ctx, img)
	out, err := resultToStruct(res)
	if err != nil {
		s.logger.Error("grpc.extract.encode_failed", "error", err)
		return nil, common.InternalError("encode result")
	}
	return out, nil
}

func (s *CodeSnapService) Explain(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	code := req.GetValue()
	v := common.NewValidator().Field("code", code, common.Required, common.MaxLength(maxCodeRunes))
	if err := v.Err(); err != nil {
		return nil, common.ToStatus(err)
	}
	ctx = requestContext(ctx)
	res := s.processor.Explain.Explain(ctx, code)
	return wrapperspb.String(res.Text), nil
}

func (s *CodeSnapService) Score(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := common.NewValidator().Field("code", req.GetValue(), common.MaxLength(maxCodeRunes)).Err(); err != nil {
		return nil, common.ToStatus(err)
	}
	out, err := complexityToStruct(analysis.Score(req.GetValue()))
	if err != nil {
		return nil, common.InternalError("encode result")
	}
	return out, nil
}

func (s *CodeSnapService) Analyze(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ctx, img, err := s.image(ctx, req)
	if err != nil {
		return nil, err
	}
	scan, err := s.processor.Process(ctx, img)
	if err != nil {
		// the scan is complete; only history failed
		s.logger.Warn("grpc.analyze.save_failed", "scan_id", scan.ID, "error", err)
	}
	out, err := scanToStruct(scan)
	if err != nil {
		s.logger.Error("grpc.analyze.encode_failed", "error", err)
		return nil, common.InternalError("encode scan")
	}
	return out, nil
}

func (s *CodeSnapService) ListScans(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.scans == nil {
		return nil, common.ToStatus(common.ErrDisabled)
	}
	filter, err := listFilter(req)
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	scans, err := s.scans.List(ctx, filter)
	if err != nil {
		s.logger.Error("grpc.list_scans.failed", "error", err)
		return nil, common.ToStatus(err)
	}
	out, err := scansToStruct(scans)
	if err != nil {
		return nil, common.InternalError("encode scans")
	}
	return out, nil
}

func (s *CodeSnapService) GetScan(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.scans == nil {
		return nil, common.ToStatus(common.ErrDisabled)
	}
	raw := strings.TrimSpace(req.GetValue())
	if err := common.NewValidator().Field("id", raw, common.Required, common.UUID).Err(); err != nil {
		return nil, common.ToStatus(err)
	}
	scan, err := s.scans.Get(ctx, uuid.MustParse(raw))
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("grpc.get_scan.failed", "scan_id", raw, "error", err)
		}
		return nil, common.ToStatus(err)
	}
	out, err := scanToStruct(*scan)
	if err != nil {
		return nil, common.InternalError("encode scan")
	}
	return out, nil
}

func (s *CodeSnapService) image(ctx context.Context, req *wrapperspb.BytesValue) (context.Context, extract.Image, error) {
	data := req.GetValue()
	name := "upload"
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataFilename); len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			name = strings.TrimSpace(v[0])
		}
	}
	v := common.NewValidator().
		Field("image", data, common.Required, common.MaxLength(constants.MaxImageBytes)).
		Field("filename", name, common.MaxLength(255))
	if err := v.Err(); err != nil {
		return ctx, nil, common.ToStatus(err)
	}
	if constants.IsHEICExt(filepath.Ext(name)) {
		return ctx, nil, common.InvalidArgumentError("HEIC uploads are not supported; send PNG or JPEG")
	}
	return requestContext(ctx), extract.NewMemoryImage(name, data), nil
}

// requestContext adopts the caller's x-request-id, when sent, as the request id.
func requestContext(ctx context.Context) context.Context {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataRequestID); len(v) > 0 && v[0] != "" {
			return common.WithRequestID(ctx, v[0])
		}
	}
	return ctx
}

func listFilter(req *structpb.Struct) (repository.ListFilter, error) {
	var f repository.ListFilter
	fields := req.GetFields()
	if v, ok := fields["limit"]; ok {
		n := v.GetNumberValue()
		if n < 0 {
			return f, errors.New("limit must not be negative")
		}
		f.Limit = int(n)
	}
	parse := func(key string) (*time.Time, error) {
		v, ok := fields[key]
		if !ok || v.GetStringValue() == "" {
			return nil, nil
		}
		raw := v.GetStringValue()
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errors.New(key + " must be RFC3339 or YYYY-MM-DD")
		}
		return &t, nil
	}
	var err error
	if f.From, err = parse("from"); err != nil {
		return f, err
	}
	if f.To, err = parse("to"); err != nil {
		return f, err
	}
	// a bare to-date covers that whole day
	if raw := fields["to"].GetStringValue(); f.To != nil && len(raw) == len("2006-01-02") {
		t := f.To.Add(24*time.Hour - time.Nanosecond)
		f.To = &t
	}
	return f, nil
}
