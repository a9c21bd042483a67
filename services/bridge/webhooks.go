package bridge

import (
	"log"
	"strings"

	"github.com/isybridge/rachio/rachio"
	"github.com/isybridge/rachio/services"
)

// externalId marks our webhook subscriptions on the cloud side.
const externalId = "polyglot"

// configureWebhooks reconciles the device's cloud webhook subscriptions with
// the configured external url: the first subscription we own is kept (fixed
// up if its url or event types drifted), duplicates are deleted, and one is
// created if none exists.
func (self *Service) configureWebhooks(deviceId string) error {
	url := services.Config.WebhookURL()
	eventTypes := rachio.AllEventTypes()

	hooks, err := self.client.ListWebhooks(deviceId)
	if err != nil {
		return err
	}
	rl := self.client.RateLimit()
	log.Printf("Obtained webhook information for %s, %d/%d API requests remaining until %s",
		deviceId, rl.Remaining, rl.Limit, rl.Reset.Format("2006-01-02 15:04:05"))

	found := false
	keptId := ""
	for _, hook := range hooks {
		if hook.ExternalId != externalId {
			continue
		}
		if found {
			// an additional subscription of ours, delete it
			log.Printf("Webhook %s found but %s is already defined, deleting", hook.Id, keptId)
			if err := self.client.DeleteWebhook(hook.Id); err != nil {
				log.Printf("Error deleting webhook %s: %s", hook.Id, err)
			}
			continue
		}
		if !strings.Contains(hook.Url, url) {
			log.Printf("Webhook %s found but url (%s) is not correct, updating to %s", hook.Id, hook.Url, url)
			if err := self.client.UpdateWebhook(hook.Id, externalId, url, eventTypes); err != nil {
				log.Printf("Error updating webhook %s url: %s", hook.Id, err)
				continue
			}
		} else if !allEventsPresent(hook) {
			log.Printf("Webhook %s found but an event type is missing, updating", hook.Id)
			if err := self.client.UpdateWebhook(hook.Id, externalId, url, eventTypes); err != nil {
				log.Printf("Error updating webhook %s event types: %s", hook.Id, err)
				continue
			}
		}
		found = true
		keptId = hook.Id
	}

	if !found {
		log.Printf("No webhooks found for device %s, creating a new subscription", deviceId)
		if err := self.client.CreateWebhook(deviceId, externalId, url, eventTypes); err != nil {
			return err
		}
	}
	return nil
}

// allEventsPresent checks the subscription covers every event type.
// WATER_BUDGET is accepted on creation but never echoed back by the cloud,
// so its absence is not a drift.
func allEventsPresent(hook rachio.Webhook) bool {
	for name := range rachio.EventTypes {
		if name == "WATER_BUDGET" {
			continue
		}
		found := false
		for _, et := range hook.EventTypes {
			if et.Name == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
