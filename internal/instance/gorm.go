package instance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tether/internal/api"
)

// InstanceRecord is the persisted form of an instance.
type InstanceRecord struct {
	ID                     string    `gorm:"primaryKey"`
	Name                   string    `gorm:"not null"`
	LowerName              string    `gorm:"not null;index:idx_instances_owner_name"`
	ShortHash              string    `gorm:"not null"`
	OwnerID                string    `gorm:"not null;index:idx_instances_owner_name"`
	OwnerUsername          string    `gorm:"not null"`
	ElasticHostname        string    `gorm:"index"`
	Env                    []string  `gorm:"serializer:json"`
	IsolatedID             string    `gorm:"column:isolated;index"`
	IsIsolationGroupMaster bool      `gorm:"not null;default:false"`
	ContextID              string    `gorm:"column:context_id"`
	ContextVersionID       string    `gorm:"column:context_version_id"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TableName implements gorm's Tabler.
func (InstanceRecord) TableName() string {
	return "instances"
}

func recordFromInstance(inst *api.Instance) *InstanceRecord {
	return &InstanceRecord{
		ID:                     inst.ID,
		Name:                   inst.Name,
		LowerName:              strings.ToLower(inst.LowerName),
		ShortHash:              inst.ShortHash,
		OwnerID:                inst.Owner.ID,
		OwnerUsername:          inst.Owner.Username,
		ElasticHostname:        strings.ToLower(inst.ElasticHostname),
		Env:                    inst.Env,
		IsolatedID:             inst.IsolatedID,
		IsIsolationGroupMaster: inst.IsIsolationGroupMaster,
		ContextID:              inst.ContextID,
		ContextVersionID:       inst.ContextVersionID,
	}
}

func (r *InstanceRecord) toInstance() *api.Instance {
	return &api.Instance{
		ID:                     r.ID,
		Name:                   r.Name,
		LowerName:              r.LowerName,
		ShortHash:              r.ShortHash,
		Owner:                  api.Owner{ID: r.OwnerID, Username: r.OwnerUsername},
		ElasticHostname:        r.ElasticHostname,
		Env:                    r.Env,
		IsolatedID:             r.IsolatedID,
		IsIsolationGroupMaster: r.IsIsolationGroupMaster,
		ContextID:              r.ContextID,
		ContextVersionID:       r.ContextVersionID,
	}
}

// OpenPostgres connects to dsn and migrates the instances table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&InstanceRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate instances table: %w", err)
	}
	return db, nil
}

// GormDirectory is a Directory backed by a gorm database.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory wraps db.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// Save creates or updates the record for inst.
func (d *GormDirectory) Save(ctx context.Context, inst *api.Instance) error {
	return d.db.WithContext(ctx).Save(recordFromInstance(inst)).Error
}

// Delete removes the record with id.
func (d *GormDirectory) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Delete(&InstanceRecord{}, "id = ?", id).Error
}

func (d *GormDirectory) FindByID(ctx context.Context, id string) (*api.Instance, error) {
	var rec InstanceRecord
	err := d.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.NewInstanceNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return rec.toInstance(), nil
}

func (d *GormDirectory) FindByLowerNameAndOwner(ctx context.Context, lowerName, ownerID string) (*api.Instance, error) {
	lowerName = strings.ToLower(lowerName)
	var rec InstanceRecord
	err := d.db.WithContext(ctx).
		Order("id").
		First(&rec, "lower_name = ? AND owner_id = ?", lowerName, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, api.NewInstanceNotFoundError(lowerName)
	}
	if err != nil {
		return nil, err
	}
	return rec.toInstance(), nil
}

func (d *GormDirectory) FindByElasticHostname(ctx context.Context, hostname string) ([]*api.Instance, error) {
	return d.find(ctx, "elastic_hostname = ?", strings.ToLower(hostname))
}

func (d *GormDirectory) FindByIsolation(ctx context.Context, isolationID string) ([]*api.Instance, error) {
	if isolationID == "" {
		return nil, nil
	}
	return d.find(ctx, "isolated = ?", isolationID)
}

func (d *GormDirectory) List(ctx context.Context) ([]*api.Instance, error) {
	var recs []*InstanceRecord
	if err := d.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toInstances(recs), nil
}

func (d *GormDirectory) find(ctx context.Context, query string, args ...interface{}) ([]*api.Instance, error) {
	var recs []*InstanceRecord
	if err := d.db.WithContext(ctx).Where(query, args...).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toInstances(recs), nil
}

func toInstances(recs []*InstanceRecord) []*api.Instance {
	out := make([]*api.Instance, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toInstance())
	}
	return out
}
