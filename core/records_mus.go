package core

import (
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the ledger records registered in cmd/musgen; refresh
// with go generate ./core. Field order is struct order, so append new fields
// at the end. Timestamps are Unix microseconds.

var (
	ChunkParamsMUS = chunkParamsMUS{}
	ParamsPinMUS   = paramsPinMUS{}
	FailureMUS     = failureMUS{}
	RunRecordMUS   = runRecordMUS{}
)

var (
	_ mus.Serializer[ChunkParams] = ChunkParamsMUS
	_ mus.Serializer[ParamsPin]   = ParamsPinMUS
	_ mus.Serializer[Failure]     = FailureMUS
	_ mus.Serializer[RunRecord]   = RunRecordMUS
)

// ChunkParams

type chunkParamsMUS struct{}

func (s chunkParamsMUS) Marshal(v ChunkParams, bs []byte) (n int) {
	n = varint.Int.Marshal(v.WindowSize, bs)
	n += varint.Int.Marshal(v.Overlap, bs[n:])
	return n + ord.String.Marshal(v.EmbeddingModel, bs[n:])
}

func (s chunkParamsMUS) Unmarshal(bs []byte) (v ChunkParams, n int, err error) {
	v.WindowSize, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Overlap, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chunkParamsMUS) Size(v ChunkParams) (size int) {
	return varint.Int.Size(v.WindowSize) + varint.Int.Size(v.Overlap) + ord.String.Size(v.EmbeddingModel)
}

func (s chunkParamsMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// ParamsPin

type paramsPinMUS struct{}

func (s paramsPinMUS) Marshal(v ParamsPin, bs []byte) (n int) {
	n = ChunkParamsMUS.Marshal(v.Params, bs)
	n += varint.Uint64.Marshal(v.Fingerprint, bs[n:])
	return n + varint.Int64.Marshal(v.PinnedAt.UnixMicro(), bs[n:])
}

func (s paramsPinMUS) Unmarshal(bs []byte) (v ParamsPin, n int, err error) {
	v.Params, n, err = ChunkParamsMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Fingerprint, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PinnedAt = time.UnixMicro(micros).UTC()
	return
}

func (s paramsPinMUS) Size(v ParamsPin) (size int) {
	return ChunkParamsMUS.Size(v.Params) + varint.Uint64.Size(v.Fingerprint) + varint.Int64.Size(v.PinnedAt.UnixMicro())
}

func (s paramsPinMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// Failure

type failureMUS struct{}

func (s failureMUS) Marshal(v Failure, bs []byte) (n int) {
	n = ord.String.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	return n + ord.String.Marshal(v.Reason, bs[n:])
}

func (s failureMUS) Unmarshal(bs []byte) (v Failure, n int, err error) {
	v.DocumentID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Reason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s failureMUS) Size(v Failure) (size int) {
	return ord.String.Size(v.DocumentID) + ord.String.Size(v.Source) + ord.String.Size(v.Reason)
}

func (s failureMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// RunRecord

type runRecordMUS struct{}

func (s runRecordMUS) counters(v *RunRecord) []*int {
	return []*int{&v.Documents, &v.Succeeded, &v.Failed, &v.Skipped, &v.EntriesWritten}
}

func (s runRecordMUS) Marshal(v RunRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Collection, bs[n:])
	n += ChunkParamsMUS.Marshal(v.Params, bs[n:])
	n += varint.Uint64.Marshal(v.Fingerprint, bs[n:])
	n += varint.Int64.Marshal(v.StartedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(int64(v.Elapsed), bs[n:])
	for _, c := range s.counters(&v) {
		n += varint.Int.Marshal(*c, bs[n:])
	}
	n += varint.Int.Marshal(len(v.Failures), bs[n:])
	for _, f := range v.Failures {
		n += FailureMUS.Marshal(f, bs[n:])
	}
	return
}

func (s runRecordMUS) Unmarshal(bs []byte) (v RunRecord, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Collection, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Params, n1, err = ChunkParamsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Fingerprint, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros, elapsed int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartedAt = time.UnixMicro(micros).UTC()
	elapsed, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Elapsed = time.Duration(elapsed)
	for _, c := range s.counters(&v) {
		*c, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	if length > 0 {
		v.Failures = make([]Failure, length)
	}
	for i := range v.Failures {
		v.Failures[i], n1, err = FailureMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s runRecordMUS) Size(v RunRecord) (size int) {
	size = ord.String.Size(v.ID) + ord.String.Size(v.Collection)
	size += ChunkParamsMUS.Size(v.Params)
	size += varint.Uint64.Size(v.Fingerprint)
	size += varint.Int64.Size(v.StartedAt.UnixMicro())
	size += varint.Int64.Size(int64(v.Elapsed))
	for _, c := range s.counters(&v) {
		size += varint.Int.Size(*c)
	}
	size += varint.Int.Size(len(v.Failures))
	for _, f := range v.Failures {
		size += FailureMUS.Size(f)
	}
	return
}

func (s runRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
