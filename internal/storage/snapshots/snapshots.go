package snapshots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

// StartTimeLayout is how snapshot start times are rendered for extraction.
const StartTimeLayout = "2006-01-02T15:04:05.000Z"

const gib = 1 << 30

type API interface {
	ec2.DescribeSnapshotsAPIClient
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
}

// Storage lists and deletes EBS volume snapshots. Snapshots are labeled
// items: named by their description, identified by their snapshot id and
// carrying their start time.
type Storage struct {
	name   string
	owner  string
	client API
}

type Options struct {
	Name      string
	Region    string
	AccessKey string
	SecretKey string
	// Owner restricts listing to snapshots of this account; "self" by default.
	Owner string
}

func New(ctx context.Context, opt Options) (*Storage, error) {
	if opt.Region == "" {
		return nil, fmt.Errorf("ec2: region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opt.Region)}
	if opt.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(opt.Name, opt.Owner, ec2.NewFromConfig(cfg)), nil
}

func NewWithClient(name, owner string, client API) *Storage {
	if owner == "" {
		owner = "self"
	}
	return &Storage{name: name, owner: owner, client: client}
}

func (s *Storage) Name() string { return s.name }

// List returns the owner's snapshots whose description starts with prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]rotate.Item, error) {
	p := ec2.NewDescribeSnapshotsPaginator(s.client, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{s.owner},
	})

	var out []rotate.Item
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apiError("describesnapshots", err)
		}
		for _, snap := range page.Snapshots {
			desc := aws.ToString(snap.Description)
			if !strings.HasPrefix(desc, prefix) {
				continue
			}
			start := aws.ToTime(snap.StartTime).UTC()
			startTime := ""
			if !start.IsZero() {
				startTime = start.Format(StartTimeLayout)
			}

			item := rotate.Labeled(aws.ToString(snap.SnapshotId), desc, startTime)
			item.Size = int64(aws.ToInt32(snap.VolumeSize)) * gib
			item.ModTime = start
			out = append(out, item)
		}
	}
	return out, nil
}

// TolerateDeleteFailures reports true. A snapshot that is still in use is
// left in place and the rotation carries on.
func (s *Storage) TolerateDeleteFailures() bool { return true }

// Delete removes the snapshot. A snapshot that no longer exists is not an
// error.
func (s *Storage) Delete(ctx context.Context, item rotate.Item) error {
	_, err := s.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(item.Handle()),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidSnapshot.NotFound" {
			return nil
		}
		return apiError("deletesnapshot", err)
	}
	return nil
}

func apiError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("ec2 %s failed: %s: %s", op, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("ec2 %s failed: %w", op, err)
}
