package sync

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	writes int
	last   []byte
	err    error
}

func (d *mockDestination) Name() string { return d.name }

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes++
	d.last = append([]byte(nil), data...)
	return d.err
}

type staticLog struct {
	data []byte
	err  error
}

func (l staticLog) Snapshot() ([]byte, error) { return l.data, l.err }

func TestMirrorSink_Deliver(t *testing.T) {
	dest1 := &mockDestination{name: "one"}
	dest2 := &mockDestination{name: "two"}
	sink := NewMirrorSink(staticLog{data: []byte(`[{"published":"a"}]`)}, dest1, dest2)

	if err := sink.Deliver(context.Background(), model.Batch{RunID: "run-1"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	for _, d := range []*mockDestination{dest1, dest2} {
		if d.writes != 1 {
			t.Errorf("%s writes = %d, want 1", d.name, d.writes)
		}
		if string(d.last) != `[{"published":"a"}]` {
			t.Errorf("%s data = %s", d.name, d.last)
		}
	}
}

func TestMirrorSink_PartialFailure(t *testing.T) {
	bad := &mockDestination{name: "bad", err: errors.New("bucket gone")}
	good := &mockDestination{name: "good"}
	sink := NewMirrorSink(staticLog{data: []byte(`[]`)}, bad, good)

	err := sink.Deliver(context.Background(), model.Batch{})
	if err == nil || !strings.Contains(err.Error(), "bad: bucket gone") {
		t.Fatalf("Deliver() error = %v, want bad destination error", err)
	}
	if good.writes != 1 {
		t.Errorf("good destination writes = %d, want 1 despite earlier failure", good.writes)
	}
}

func TestMirrorSink_SnapshotError(t *testing.T) {
	dest := &mockDestination{name: "one"}
	sink := NewMirrorSink(staticLog{err: errors.New("no such file")}, dest)
	if err := sink.Deliver(context.Background(), model.Batch{}); err == nil {
		t.Fatal("expected error, got nil")
	}
	if dest.writes != 0 {
		t.Errorf("writes = %d, want 0", dest.writes)
	}
}

// fakeS3 captures PutObject input.
type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Destination_Write(t *testing.T) {
	fake := &fakeS3{}
	dest := NewS3DestinationWithClient(fake, "archive", "evcollect/events.json")

	if err := dest.Write(context.Background(), []byte(`[]`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if aws.ToString(fake.in.Bucket) != "archive" || aws.ToString(fake.in.Key) != "evcollect/events.json" {
		t.Errorf("bucket/key = %s/%s", aws.ToString(fake.in.Bucket), aws.ToString(fake.in.Key))
	}
	if aws.ToString(fake.in.ContentType) != "application/json" {
		t.Errorf("content type = %q", aws.ToString(fake.in.ContentType))
	}
	if aws.ToInt64(fake.in.ContentLength) != 2 {
		t.Errorf("content length = %d", aws.ToInt64(fake.in.ContentLength))
	}
	if fake.body != `[]` {
		t.Errorf("body = %q", fake.body)
	}
	if dest.Name() != "s3://archive/evcollect/events.json" {
		t.Errorf("Name() = %q", dest.Name())
	}
}

func TestS3Destination_Error(t *testing.T) {
	dest := NewS3DestinationWithClient(&fakeS3{err: errors.New("AccessDenied")}, "b", "k")
	if err := dest.Write(context.Background(), []byte(`[]`)); err == nil {
		t.Fatal("expected error, got nil")
	}
}
