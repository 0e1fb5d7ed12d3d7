package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FactRolPlaySim mirrors the spreadsheet as a table. The scoring pairs live
// in a jsonb column.
type FactRolPlaySim struct {
	ID              uint           `gorm:"primaryKey"`
	Usuario         string         `gorm:"type:varchar(100);not null;index"`
	UsuarioNombre   string         `gorm:"type:varchar(200)"`
	Sucursal        *string        `gorm:"type:varchar(100);index"`
	ActividadNombre string         `gorm:"type:varchar(200);not null;index"`
	CasoDeUsoNombre string         `gorm:"type:varchar(200)"`
	FechaHora       time.Time      `gorm:"not null;index"`
	Calificacion    float64        `gorm:"not null"`
	PuntosTotales   float64        `gorm:"not null"`
	Detalle         datatypes.JSON `gorm:"type:jsonb"`
}

func (FactRolPlaySim) TableName() string {
	return "fact_rolplay_sim"
}

// PostgresLoader reads the fact table through GORM.
type PostgresLoader struct {
	db *gorm.DB
}

func NewPostgresLoader(db *gorm.DB) *PostgresLoader {
	return &PostgresLoader{db: db}
}

func (l *PostgresLoader) Load(ctx context.Context) (*Dataset, error) {
	var rows []FactRolPlaySim
	if err := l.db.WithContext(ctx).Order("fecha_hora ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", FactRolPlaySim{}.TableName(), err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, fmt.Errorf("fact %d: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return New(records), nil
}

func (m FactRolPlaySim) toRecord() (Record, error) {
	rec := Record{
		Usuario:         m.Usuario,
		UsuarioNombre:   m.UsuarioNombre,
		ActividadNombre: m.ActividadNombre,
		CasoDeUso:       m.CasoDeUsoNombre,
		FechaHora:       m.FechaHora,
		Calificacion:    m.Calificacion,
		PuntosTotales:   m.PuntosTotales,
	}
	if m.Sucursal != nil {
		rec.Sucursal = *m.Sucursal
	}
	if len(m.Detalle) > 0 {
		if err := json.Unmarshal(m.Detalle, &rec.Detalle); err != nil {
			return Record{}, fmt.Errorf("decode detalle: %w", err)
		}
	}
	return rec, nil
}

// FromRecord is used by the import command to seed the table.
func FromRecord(r Record) (FactRolPlaySim, error) {
	m := FactRolPlaySim{
		Usuario:         r.Usuario,
		UsuarioNombre:   r.UsuarioNombre,
		ActividadNombre: r.ActividadNombre,
		CasoDeUsoNombre: r.CasoDeUso,
		FechaHora:       r.FechaHora,
		Calificacion:    r.Calificacion,
		PuntosTotales:   r.PuntosTotales,
	}
	if r.Sucursal != "" {
		s := r.Sucursal
		m.Sucursal = &s
	}
	if len(r.Detalle) > 0 {
		raw, err := json.Marshal(r.Detalle)
		if err != nil {
			return FactRolPlaySim{}, err
		}
		m.Detalle = datatypes.JSON(raw)
	}
	return m, nil
}

// Migrate creates or updates the fact table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&FactRolPlaySim{}); err != nil {
		return fmt.Errorf("migrate %s: %w", FactRolPlaySim{}.TableName(), err)
	}
	return nil
}

// Import replaces the table contents with ds in one transaction.
func Import(ctx context.Context, db *gorm.DB, ds *Dataset, batchSize int) (int, error) {
	rows := make([]FactRolPlaySim, 0, ds.Len())
	for i, r := range ds.Records {
		m, err := FromRecord(r)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, m)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&FactRolPlaySim{}).Error; err != nil {
			return fmt.Errorf("clear %s: %w", FactRolPlaySim{}.TableName(), err)
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
