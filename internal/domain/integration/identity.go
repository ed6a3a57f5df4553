package integration

import (
	"strconv"
	"strings"
)

// ProductKey returns the WebProduct identity: the trimmed remote SKU code when
// present, otherwise {storefront}-{remoteID}.
func ProductKey(storefront string, remoteID int64, sku string) string {
	if code := strings.TrimSpace(sku); code != "" {
		return code
	}
	return storefront + "-" + strconv.FormatInt(remoteID, 10)
}

// ProductLookupKey returns the key order lines use to find their WebProduct:
// {remoteProductID}-{storefront}.
func ProductLookupKey(storefront string, remoteProductID int64) string {
	return strconv.FormatInt(remoteProductID, 10) + "-" + storefront
}

// OrderKey returns the WebOrder identity {storefront}-{remoteOrderID}
func OrderKey(storefront string, remoteOrderID int64) string {
	return storefront + "-" + strconv.FormatInt(remoteOrderID, 10)
}

// CheckpointID returns the SyncCheckpoint identity {resourceType}-{storefront}
func CheckpointID(rt ResourceType, storefront string) string {
	return rt.String() + "-" + storefront
}
