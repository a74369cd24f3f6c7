package core

import (
	"time"

	muss "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted record. The teacher format for every
// timestamp is UnixMicro, with 0 standing for the zero time so optional
// timestamps round-trip exactly.

var (
	// LogEntryMUS serializes a single log line.
	LogEntryMUS = logEntryMUS{}
	// DistillationMUS serializes a full record.
	DistillationMUS = distillationMUS{}

	logsMUS     = ord.NewSliceSer[LogEntry](LogEntryMUS)
	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

var (
	_ muss.Serializer[LogEntry]     = LogEntryMUS
	_ muss.Serializer[Distillation] = DistillationMUS
)

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(micro int64) time.Time {
	if micro == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micro).UTC()
}

type logEntryMUS struct{}

func (logEntryMUS) Marshal(v LogEntry, bs []byte) (n int) {
	n = varint.Int64.Marshal(timeToMicro(v.Time), bs)
	n += ord.String.Marshal(v.Message, bs[n:])
	return
}

func (logEntryMUS) Unmarshal(bs []byte) (v LogEntry, n int, err error) {
	var micro int64
	micro, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Time = microToTime(micro)
	var n1 int
	v.Message, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (logEntryMUS) Size(v LogEntry) (size int) {
	return varint.Int64.Size(timeToMicro(v.Time)) + ord.String.Size(v.Message)
}

func (logEntryMUS) Skip(bs []byte) (n int, err error) {
	n, err = varint.Int64.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type distillationMUS struct{}

func (distillationMUS) Marshal(v Distillation, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(string(v.SourceType), bs[n:])
	n += ord.String.Marshal(v.SourceRef, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(v.RawContent, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.CreatedAt), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.StartTime), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.DistillingStartTime), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.CompletedAt), bs[n:])
	n += varint.Int.Marshal(v.WordCount, bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += metadataMUS.Marshal(v.ExtractionMetadata, bs[n:])
	n += logsMUS.Marshal(v.Logs, bs[n:])
	return
}

func (distillationMUS) Unmarshal(bs []byte) (v Distillation, n int, err error) {
	var n1 int

	unmarshalString := func(dst *string) bool {
		if err != nil {
			return false
		}
		*dst, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		return err == nil
	}
	unmarshalTime := func(dst *time.Time) bool {
		if err != nil {
			return false
		}
		var micro int64
		micro, n1, err = varint.Int64.Unmarshal(bs[n:])
		n += n1
		*dst = microToTime(micro)
		return err == nil
	}

	var sourceType, status string
	if !unmarshalString(&v.ID) ||
		!unmarshalString(&v.Title) ||
		!unmarshalString(&sourceType) ||
		!unmarshalString(&v.SourceRef) ||
		!unmarshalString(&status) ||
		!unmarshalString(&v.RawContent) ||
		!unmarshalString(&v.Content) {
		return
	}
	v.SourceType = SourceType(sourceType)
	v.Status = Status(status)

	if !unmarshalTime(&v.CreatedAt) ||
		!unmarshalTime(&v.StartTime) ||
		!unmarshalTime(&v.DistillingStartTime) ||
		!unmarshalTime(&v.CompletedAt) {
		return
	}

	v.WordCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if !unmarshalString(&v.Error) {
		return
	}
	v.ExtractionMetadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Logs, n1, err = logsMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (distillationMUS) Size(v Distillation) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(string(v.SourceType))
	size += ord.String.Size(v.SourceRef)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(v.RawContent)
	size += ord.String.Size(v.Content)
	size += varint.Int64.Size(timeToMicro(v.CreatedAt))
	size += varint.Int64.Size(timeToMicro(v.StartTime))
	size += varint.Int64.Size(timeToMicro(v.DistillingStartTime))
	size += varint.Int64.Size(timeToMicro(v.CompletedAt))
	size += varint.Int.Size(v.WordCount)
	size += ord.String.Size(v.Error)
	size += metadataMUS.Size(v.ExtractionMetadata)
	size += logsMUS.Size(v.Logs)
	return
}

func (distillationMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	skip := func(s func([]byte) (int, error)) bool {
		if err != nil {
			return false
		}
		n1, err = s(bs[n:])
		n += n1
		return err == nil
	}

	// 7 leading strings, 4 timestamps, word count, error, metadata, logs.
	for i := 0; i < 7; i++ {
		if !skip(ord.String.Skip) {
			return
		}
	}
	for i := 0; i < 4; i++ {
		if !skip(varint.Int64.Skip) {
			return
		}
	}
	if !skip(varint.Int.Skip) || !skip(ord.String.Skip) ||
		!skip(metadataMUS.Skip) || !skip(logsMUS.Skip) {
		return
	}
	return
}
