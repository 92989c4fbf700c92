package asset

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"controlcenter/internal/storage"
)

type Vehicle struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	VIN               string           `json:"vin"`
	Year              *int             `json:"year,omitempty"`
	Make              string           `json:"make"`
	Model             string           `json:"model"`
	VehicleType       string           `json:"vehicle_type"`
	Color             string           `json:"color"`
	LicensePlate      string           `json:"license_plate"`
	RegistrationState string           `json:"registration_state"`
	Mileage           *int             `json:"mileage,omitempty"`
	EstimatedValue    *decimal.Decimal `json:"estimated_value,omitempty"`
	AcquisitionDate   string           `json:"acquisition_date,omitempty"`
	Status            string           `json:"status"`
	NotesText         string           `json:"notes_text"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type Aircraft struct {
	ID                  int64            `json:"id"`
	Name                string           `json:"name"`
	TailNumber          string           `json:"tail_number"`
	SerialNumber        string           `json:"serial_number"`
	Year                *int             `json:"year,omitempty"`
	Make                string           `json:"make"`
	Model               string           `json:"model"`
	AircraftType        string           `json:"aircraft_type"`
	NumEngines          *int             `json:"num_engines,omitempty"`
	BaseAirport         string           `json:"base_airport"`
	TotalHours          *decimal.Decimal `json:"total_hours,omitempty"`
	EstimatedValue      *decimal.Decimal `json:"estimated_value,omitempty"`
	AcquisitionDate     string           `json:"acquisition_date,omitempty"`
	Status              string           `json:"status"`
	RegistrationCountry string           `json:"registration_country"`
	NotesText           string           `json:"notes_text"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func nullI(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanI(ns sql.NullInt64) *int {
	if !ns.Valid {
		return nil
	}
	v := int(ns.Int64)
	return &v
}

func (s *Store) CreateVehicle(ctx context.Context, v *Vehicle) (int64, error) {
	if strings.TrimSpace(v.Name) == "" {
		return 0, errors.New("name is required")
	}
	if err := validDate(v.AcquisitionDate); err != nil {
		return 0, err
	}
	if v.VehicleType == "" {
		v.VehicleType = "other"
	}
	if v.Status == "" {
		v.Status = "active"
	}
	now := nowStamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicles(name, vin, year, make, model, vehicle_type, color,
			license_plate, registration_state, mileage, estimated_value,
			acquisition_date, status, notes_text, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.Name, v.VIN, nullI(v.Year), v.Make, v.Model, v.VehicleType, v.Color,
		v.LicensePlate, v.RegistrationState, nullI(v.Mileage),
		nullDecimal(v.EstimatedValue), storage.NullStr(v.AcquisitionDate),
		v.Status, v.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	v.ID = id
	return id, err
}

const vehicleColumns = `id, name, vin, year, make, model, vehicle_type, color,
	license_plate, registration_state, mileage, estimated_value,
	acquisition_date, status, notes_text, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (*Vehicle, error) {
	var (
		v                    Vehicle
		year, mileage        sql.NullInt64
		value, acquired      sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&v.ID, &v.Name, &v.VIN, &year, &v.Make, &v.Model, &v.VehicleType,
		&v.Color, &v.LicensePlate, &v.RegistrationState, &mileage, &value,
		&acquired, &v.Status, &v.NotesText, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	v.Year = scanI(year)
	v.Mileage = scanI(mileage)
	v.EstimatedValue = scanDecimal(value)
	v.AcquisitionDate = acquired.String
	v.CreatedAt = parseStamp(createdAt)
	v.UpdatedAt = parseStamp(updatedAt)
	return &v, nil
}

func (s *Store) GetVehicle(ctx context.Context, id int64) (*Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *Store) ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateVehicle(ctx context.Context, v *Vehicle) error {
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("name is required")
	}
	if err := validDate(v.AcquisitionDate); err != nil {
		return err
	}
	return affected(s.db.ExecContext(ctx,
		`UPDATE vehicles SET name=?, vin=?, year=?, make=?, model=?, vehicle_type=?,
			color=?, license_plate=?, registration_state=?, mileage=?,
			estimated_value=?, acquisition_date=?, status=?, notes_text=?, updated_at=?
		 WHERE id = ?`,
		v.Name, v.VIN, nullI(v.Year), v.Make, v.Model, v.VehicleType, v.Color,
		v.LicensePlate, v.RegistrationState, nullI(v.Mileage),
		nullDecimal(v.EstimatedValue), storage.NullStr(v.AcquisitionDate),
		v.Status, v.NotesText, nowStamp(), v.ID))
}

func (s *Store) DeleteVehicle(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id))
}

func (s *Store) CreateAircraft(ctx context.Context, a *Aircraft) (int64, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, errors.New("name is required")
	}
	if err := validDate(a.AcquisitionDate); err != nil {
		return 0, err
	}
	if a.AircraftType == "" {
		a.AircraftType = "single_engine"
	}
	if a.Status == "" {
		a.Status = "active"
	}
	if a.RegistrationCountry == "" {
		a.RegistrationCountry = "US"
	}
	now := nowStamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO aircraft(name, tail_number, serial_number, year, make, model,
			aircraft_type, num_engines, base_airport, total_hours, estimated_value,
			acquisition_date, status, registration_country, notes_text, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.Name, a.TailNumber, a.SerialNumber, nullI(a.Year), a.Make, a.Model,
		a.AircraftType, nullI(a.NumEngines), a.BaseAirport, nullDecimal(a.TotalHours),
		nullDecimal(a.EstimatedValue), storage.NullStr(a.AcquisitionDate),
		a.Status, a.RegistrationCountry, a.NotesText, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	a.ID = id
	return id, err
}

const aircraftColumns = `id, name, tail_number, serial_number, year, make, model,
	aircraft_type, num_engines, base_airport, total_hours, estimated_value,
	acquisition_date, status, registration_country, notes_text, created_at, updated_at`

func scanAircraft(row interface{ Scan(...any) error }) (*Aircraft, error) {
	var (
		a                      Aircraft
		year, engines          sql.NullInt64
		hours, value, acquired sql.NullString
		createdAt, updatedAt   string
	)
	err := row.Scan(&a.ID, &a.Name, &a.TailNumber, &a.SerialNumber, &year, &a.Make,
		&a.Model, &a.AircraftType, &engines, &a.BaseAirport, &hours, &value,
		&acquired, &a.Status, &a.RegistrationCountry, &a.NotesText, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Year = scanI(year)
	a.NumEngines = scanI(engines)
	a.TotalHours = scanDecimal(hours)
	a.EstimatedValue = scanDecimal(value)
	a.AcquisitionDate = acquired.String
	a.CreatedAt = parseStamp(createdAt)
	a.UpdatedAt = parseStamp(updatedAt)
	return &a, nil
}

func (s *Store) GetAircraft(ctx context.Context, id int64) (*Aircraft, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+aircraftColumns+` FROM aircraft WHERE id = ?`, id)
	a, err := scanAircraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Store) ListAircraft(ctx context.Context) ([]*Aircraft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+aircraftColumns+` FROM aircraft ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Aircraft
	for rows.Next() {
		a, err := scanAircraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAircraft(ctx context.Context, a *Aircraft) error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("name is required")
	}
	if err := validDate(a.AcquisitionDate); err != nil {
		return err
	}
	return affected(s.db.ExecContext(ctx,
		`UPDATE aircraft SET name=?, tail_number=?, serial_number=?, year=?, make=?,
			model=?, aircraft_type=?, num_engines=?, base_airport=?, total_hours=?,
			estimated_value=?, acquisition_date=?, status=?, registration_country=?,
			notes_text=?, updated_at=?
		 WHERE id = ?`,
		a.Name, a.TailNumber, a.SerialNumber, nullI(a.Year), a.Make, a.Model,
		a.AircraftType, nullI(a.NumEngines), a.BaseAirport, nullDecimal(a.TotalHours),
		nullDecimal(a.EstimatedValue), storage.NullStr(a.AcquisitionDate),
		a.Status, a.RegistrationCountry, a.NotesText, nowStamp(), a.ID))
}

func (s *Store) DeleteAircraft(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM aircraft WHERE id = ?`, id))
}
