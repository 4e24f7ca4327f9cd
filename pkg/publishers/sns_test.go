package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/samvad-hq/signed-book-watch/internal/logger"
)

type recordingSNS struct {
	in  *sns.PublishInput
	err error
}

func (r *recordingSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	r.in = in
	if r.err != nil {
		return nil, r.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSPublisherUsesTitleAsSubject(t *testing.T) {
	api := &recordingSNS{}
	pub := &snsPublisher{id: "topic", topicARN: "arn:aws:sns:us-east-1:1:signed", api: api, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(api.in.TopicArn) != "arn:aws:sns:us-east-1:1:signed" {
		t.Fatalf("unexpected topic %q", aws.ToString(api.in.TopicArn))
	}
	if aws.ToString(api.in.Subject) != "New signed book - Elantris Leatherbound" {
		t.Fatalf("unexpected subject %q", aws.ToString(api.in.Subject))
	}
	if !strings.Contains(aws.ToString(api.in.Message), `"added":["Elantris Leatherbound"]`) {
		t.Fatalf("message missing added titles: %s", aws.ToString(api.in.Message))
	}
	if got := aws.ToString(api.in.MessageAttributes["event_type"].StringValue); got != EventTypeTitlesChanged {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
}

func TestSNSPublisherError(t *testing.T) {
	pub := &snsPublisher{id: "topic", topicARN: "arn", api: &recordingSNS{err: errors.New("denied")}, log: logger.NopLogger{}}
	if err := pub.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestSNSSubject(t *testing.T) {
	if got := snsSubject("New signed book -\n Elantris"); got != "New signed book - Elantris" {
		t.Fatalf("line breaks not collapsed: %q", got)
	}
	long := snsSubject("New signed book - " + strings.Repeat("É", 200))
	if utf8.RuneCountInString(long) != maxSubjectLen || !strings.HasSuffix(long, "...") {
		t.Fatalf("unexpected truncation %q", long)
	}
	if snsSubject("") != "" {
		t.Fatalf("empty title should give empty subject")
	}
}
