package supabase

import "time"

// DefaultTable is the table holding stored values.
//
//	create table wallet_storage (
//	  key        text primary key,
//	  value      text not null,
//	  updated_at timestamptz not null default now()
//	);
const DefaultTable = "wallet_storage"

// Row represents one stored key/value pair.
type Row struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
