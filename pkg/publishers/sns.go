package publishers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNS rejects subjects longer than this or containing line breaks.
const maxSubjectLen = 100

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher publishes each event to an SNS topic, using the issue title
// as the message subject.
type snsPublisher struct {
	id       string
	topicARN string
	api      snsAPI
	log      Logger
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.Credentials)
	if err != nil {
		return nil, err
	}
	return &snsPublisher{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		api:      sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return TypeSNS }
func (s *snsPublisher) Close() error { return nil }

func (s *snsPublisher) Publish(ctx context.Context, evt Event) error {
	msg, err := evt.payload()
	if err != nil {
		return err
	}

	in := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(msg),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(evt.Type)},
		},
	}
	if subject := snsSubject(evt.Title); subject != "" {
		in.Subject = aws.String(subject)
	}

	out, err := s.api.Publish(ctx, in)
	if err != nil {
		return fmt.Errorf("publish sns message: %w", err)
	}
	s.log.DebugObj("sns message published", "sns", map[string]any{
		"publisher_id": s.id,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

func snsSubject(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(title) <= maxSubjectLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxSubjectLen-3]) + "..."
}
