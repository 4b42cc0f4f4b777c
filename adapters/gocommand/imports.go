package gocommand

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	importcommand "github.com/goliatone/go-savedobjects/command"
	"github.com/goliatone/go-savedobjects/core"
	"github.com/goliatone/go-savedobjects/source"
)

// ImportSubscriptions holds the dispatcher subscriptions created by
// RegisterImportCommands.
type ImportSubscriptions []commanddispatcher.Subscription

func (s ImportSubscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterImportCommands registers and subscribes the import commands. The
// source commands are only wired when an opener is given.
func RegisterImportCommands(
	adapter *RegistryAdapter,
	service core.ImportService,
	opener source.Opener,
	runnerOpts ...runner.Option,
) (ImportSubscriptions, error) {
	if service == nil {
		return nil, fmt.Errorf("gocommand: import service is required")
	}
	var subscriptions ImportSubscriptions
	register := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			subscriptions.Unsubscribe()
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	if err := register(RegisterAndSubscribe[importcommand.ImportMessage](
		adapter, importcommand.NewImportCommand(service), runnerOpts...,
	)); err != nil {
		return nil, err
	}
	if err := register(RegisterAndSubscribe[importcommand.ResolveImportErrorsMessage](
		adapter, importcommand.NewResolveImportErrorsCommand(service), runnerOpts...,
	)); err != nil {
		return nil, err
	}
	if opener == nil {
		return subscriptions, nil
	}
	if err := register(RegisterAndSubscribe[importcommand.ImportFromSourceMessage](
		adapter, importcommand.NewImportFromSourceCommand(service, opener), runnerOpts...,
	)); err != nil {
		return nil, err
	}
	if err := register(RegisterAndSubscribe[importcommand.ResolveImportErrorsFromSourceMessage](
		adapter, importcommand.NewResolveImportErrorsFromSourceCommand(service, opener), runnerOpts...,
	)); err != nil {
		return nil, err
	}
	return subscriptions, nil
}
