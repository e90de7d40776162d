package service

import "shareit/internal/models"

// CanViewBooking allows the booker and the owner of the booked item.
func CanViewBooking(userID int64, booking *models.Booking) bool {
	return userID == booking.BookerID || userID == booking.ItemOwnerID
}

// CanDecideBooking allows only the owner of the booked item.
func CanDecideBooking(userID int64, booking *models.Booking) bool {
	return userID == booking.ItemOwnerID
}

// CanViewSchedule gates the last/next booking fields of an item.
func CanViewSchedule(userID int64, item *models.Item) bool {
	return userID == item.OwnerID
}

// CanModifyItem allows only the item owner.
func CanModifyItem(userID int64, item *models.Item) bool {
	return userID == item.OwnerID
}
