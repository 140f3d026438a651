package discovery

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// rdsAPI is the subset of the RDS client used here, kept small for mocking.
type rdsAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// RDSDiscovery lists instances through the RDS DescribeDBInstances API.
type RDSDiscovery struct {
	client             rdsAPI
	instanceIdentifier string
}

// NewRDSDiscovery builds a discovery backed by an RDS client for cfg.
// A non-empty instanceIdentifier narrows the listing to that instance.
func NewRDSDiscovery(cfg aws.Config, instanceIdentifier string, optFns ...func(*rds.Options)) *RDSDiscovery {
	return &RDSDiscovery{
		client:             rds.NewFromConfig(cfg, optFns...),
		instanceIdentifier: instanceIdentifier,
	}
}

// ListInstances returns the first page of DescribeDBInstances. Callers only
// ever consume the head of the list, so further pages are not requested.
func (d *RDSDiscovery) ListInstances(ctx context.Context) ([]Instance, error) {
	input := &rds.DescribeDBInstancesInput{}
	if d.instanceIdentifier != "" {
		input.DBInstanceIdentifier = aws.String(d.instanceIdentifier)
	}

	out, err := d.client.DescribeDBInstances(ctx, input)
	if err != nil {
		return nil, newBackendError("AWS RDS", err)
	}

	instances := make([]Instance, 0, len(out.DBInstances))
	for _, db := range out.DBInstances {
		inst := Instance{
			Identifier: aws.ToString(db.DBInstanceIdentifier),
			Engine:     aws.ToString(db.Engine),
			Status:     aws.ToString(db.DBInstanceStatus),
		}
		if db.Endpoint != nil {
			inst.Address = aws.ToString(db.Endpoint.Address)
			inst.Port = aws.ToInt32(db.Endpoint.Port)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}
