package cmd

import (
	"context"
	"fmt"

	"github.com/erebuskaimoros/Landlord-sub000/internal/appconfig"
	"github.com/erebuskaimoros/Landlord-sub000/internal/engine"
	"github.com/erebuskaimoros/Landlord-sub000/internal/facade"
	"github.com/erebuskaimoros/Landlord-sub000/internal/localdb"
	"github.com/erebuskaimoros/Landlord-sub000/internal/netmon"
	"github.com/erebuskaimoros/Landlord-sub000/internal/outbox"
	"github.com/erebuskaimoros/Landlord-sub000/internal/remote"
	"github.com/erebuskaimoros/Landlord-sub000/internal/store"
)

// App bundles everything a command needs: the local database, the sync
// engine and the read/write facade, all scoped to the configured
// organization.
type App struct {
	DB     *localdb.DB
	Store  *store.Store
	Outbox *outbox.Outbox
	Client *remote.Client
	Mon    *netmon.Monitor
	Probe  *netmon.ProbeSource
	Engine *engine.Engine
	Facade *facade.Facade
	OrgID  string
}

// openApp opens the local database and wires the sync stack. The probe runs
// once synchronously so one-shot commands see the real connectivity state.
func openApp() (*App, error) {
	orgID := appconfig.GetOrganizationID()
	if orgID == "" {
		return nil, fmt.Errorf("no organization configured (run: landlord config set organization_id <id>)")
	}

	db, err := localdb.Open(getBaseDir())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(schemaMigrations); err != nil {
		db.Close()
		return nil, err
	}

	st := store.New(db.Conn())
	box := outbox.New(db.Conn())
	client := remote.New(appconfig.GetServerURL(), appconfig.GetAPIKey(), orgID)

	probe := netmon.NewProbeSource(client.HealthCheck, 0)
	mon := netmon.New()
	mon.SetState(probe.Probe())
	mon.Start(probe)

	eng := engine.New(st, box, client, mon)
	fac := facade.New(st, box, client, mon, orgID)

	// Process start is the CLI's foreground transition: deliver anything
	// queued by earlier offline runs before the command does its work.
	if appconfig.GetSyncOnStart() {
		eng.NotifyForeground(context.Background())
	}

	return &App{
		DB:     db,
		Store:  st,
		Outbox: box,
		Client: client,
		Mon:    mon,
		Probe:  probe,
		Engine: eng,
		Facade: fac,
		OrgID:  orgID,
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	a.Mon.Stop()
	a.Probe.Stop()
	return a.DB.Close()
}
