package locks

import "testing"

func TestLockModeBlocking(t *testing.T) {
	tests := []struct {
		mode         LockMode
		name         string
		blocksReads  bool
		blocksWrites bool
	}{
		{LockAccessShare, "ACCESS SHARE", false, false},
		{LockShareUpdateExclusive, "SHARE UPDATE EXCLUSIVE", false, false},
		{LockShare, "SHARE", false, true},
		{LockAccessExclusive, "ACCESS EXCLUSIVE", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.name {
				t.Errorf("Expected %s, got %s", tt.name, got)
			}
			if got := tt.mode.BlocksReads(); got != tt.blocksReads {
				t.Errorf("BlocksReads() = %v, want %v", got, tt.blocksReads)
			}
			if got := tt.mode.BlocksWrites(); got != tt.blocksWrites {
				t.Errorf("BlocksWrites() = %v, want %v", got, tt.blocksWrites)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want LockMode
	}{
		{"plain index", "CREATE INDEX ix ON orders (id)", LockShare},
		{"unique index", "create unique index ix on orders (id)", LockShare},
		{"concurrent index", "CREATE INDEX CONCURRENTLY ix ON orders (id)", LockShareUpdateExclusive},
		{"primary key", "ALTER TABLE orders ADD CONSTRAINT pk PRIMARY KEY (id)", LockAccessExclusive},
		{"validate constraint", "ALTER TABLE orders VALIDATE CONSTRAINT fk", LockShareUpdateExclusive},
		{"leading comment", "-- disabled on source\nCREATE INDEX ix ON orders (id)", LockShare},
		{"comment on", "COMMENT ON INDEX ix IS 'x'", LockShareUpdateExclusive},
		{"empty", "  \n", LockAccessShare},
		{"unknown", "VACUUM FULL orders", LockAccessExclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.stmt); got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s", tt.stmt, got, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	impact := Analyze("CREATE INDEX ix ON orders (id)")
	if !impact.BlocksWrites || impact.BlocksReads {
		t.Errorf("Expected plain index build to block writes only, got %+v", impact)
	}
	if impact.Explanation == "" {
		t.Error("Expected an explanation")
	}

	impact = Analyze("ALTER TABLE orders ADD CONSTRAINT uq UNIQUE (number)")
	if !impact.BlocksReads {
		t.Errorf("Expected ADD CONSTRAINT to block reads, got %+v", impact)
	}
}

func TestConcurrently(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		want    string
		changed bool
	}{
		{"plain", "CREATE INDEX ix ON orders (id)", "CREATE INDEX CONCURRENTLY ix ON orders (id)", true},
		{"unique lower case", "create unique index ix on orders (id)", "create unique index CONCURRENTLY ix on orders (id)", true},
		{"unnamed", "CREATE INDEX ON orders (id)", "CREATE INDEX CONCURRENTLY ON orders (id)", true},
		{"leading comment", "-- note\nCREATE INDEX ix ON orders (id)", "-- note\nCREATE INDEX CONCURRENTLY ix ON orders (id)", true},
		{"already concurrent", "CREATE INDEX CONCURRENTLY ix ON orders (id)", "CREATE INDEX CONCURRENTLY ix ON orders (id)", false},
		{"constraint", "ALTER TABLE orders ADD PRIMARY KEY (id)", "ALTER TABLE orders ADD PRIMARY KEY (id)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Concurrently(tt.stmt)
			if got != tt.want || changed != tt.changed {
				t.Errorf("Concurrently(%q) = %q, %v; want %q, %v", tt.stmt, got, changed, tt.want, tt.changed)
			}
			if changed && Detect(got) != LockShareUpdateExclusive {
				t.Errorf("Expected rewritten statement to be concurrent: %q", got)
			}
		})
	}
}
