package smaz

// defaultStems is the classic English-biased codebook.
var defaultStems = []string{
	" ", "the", "e", "t", "a", "of", "o", "and", "i", "n", "s", "e ", "r", " th", " t",
	"in", "he", "th", "h", "he ", "to", "\r\n", "l", "s ", "d", " a", "an", "er", "c", " o",
	"d ", "on", " of", "re", "of ", "t ", ", ", "is", "u", "at", "   ", "n ", "or", "which",
	"f", "m", "as", "it", "that", "\n", "was", "en", "  ", " w", "es", " an", " i", "\r",
	"f ", "g", "p", "nd", " s", "nd ", "ed ", "w", "ed", "http://", "for", "te", "ing",
	"y ", "The", " c", "ti", "r ", "his", "st", " in", "ar", "nt", ",", " to", "y", "ng",
	" h", "with", "le", "al", "to ", "b", "ou", "be", "were", " b", "se", "o ", "ent", "ha",
	"ng ", "their", "\"", "hi", "from", " f", "in ", "de", "ion", "me", "v", ".", "ve",
	"all", "re ", "ri", "ro", "is ", "co", "f t", "are", "ea", ". ", "her", " m", "er ",
	" p", "es ", "by", "they", "di", "ra", "ic", "not", "s, ", "d t", "at ", "ce", "la",
	"h ", "ne", "as ", "tio", "on ", "n t", "io", "we", " a ", "om", ", a", "s o", "ur",
	"li", "ll", "ch", "had", "this", "e t", "g ", "e\r\n", " wh", "ere", " co", "e o", "a ",
	"us", " d", "ss", "\n\r\n", "\r\n\r", "=\"", " be", " e", "s a", "ma", "one", "t t",
	"or ", "but", "el", "so", "l ", "e s", "s,", "no", "ter", " wa", "iv", "ho", "e a",
	" r", "hat", "s t", "ns", "ch ", "wh", "tr", "ut", "/", "have", "ly ", "ta", " ha",
	" on", "tha", "-", " l", "ati", "en ", "pe", " re", "there", "ass", "si", " fo", "wa",
	"ec", "our", "who", "its", "z", "fo", "rs", ">", "ot", "un", "<", "im", "th ", "nc",
	"ate", "><", "ver", "ad", " we", "ly", "ee", " n", "id", " cl", "ac", "il", "</", "rt",
	" wi", "div", "e, ", " it", "whi", " ma", "ge", "x", "e c", "men", ".com",
}

// urlStems is tuned for website addresses.
var urlStems = []string{
	"http://", "https://", "http://www.", "https://www.", "www.", ".com", ".org", ".net",
	".ru", ".de", ".uk", ".fr", ".it", ".es", ".pl", ".nl", ".info", ".html", ".htm",
	".php", ".asp", ".aspx", ".jsp", ".co", ".io", ".eu", ".at", ".ch", ".cz", ".ua", ".by",
	".su", ".рф", ".us", ".ca", ".au", "/", "//", "/index", "index", "?", "=", "&", "-",
	"_", ".", "#", "%", "id=", "page", "/en", "/ru", "/de", "/fr", "/it", "/es", "en/",
	"ru/", "de/", "facebook.com/", "instagram.com/", "vk.com/", "twitter.com/",
	"youtube.com/", "t.me/", "ok.ru/", "tripadvisor.", "booking.com/", "google.com/",
	"wikipedia.org/", "hotel", "restaurant", "cafe", "shop", "museum", "church", "school",
	"city", "park", "travel", "tour", "info", "online", "ski", "resort", "camp", "house",
	"home", "book", "food", "pizza", "bar", "club", "center", "centre", "service", "auto",
	"car", "apteka", "clinic", "medic", "bank", "store", "sport", "fitness", "beauty",
	"salon", "gov", "edu", "news", "market", "group", "holiday", "hostel", "apartment",
	"gallery", "theatre", "cinema", "bike", "rent", "spa", "guest", "inn", "lodge",
	"cottage", "farm", "wine", "beer", "pub", "coffee", "bakery", "fish", "garden", "zoo",
	"castle", "tourism", "visit", "office", "contact", "about", "de-", "the", "and", "st",
	"in", "er", "re", "on", "an", "or", "ar", "te", "es", "ed", "io", "ti", "al", "ma",
	"ra", "ka", "ov", "ia", "el", "la", "le", "ne", "ri", "ro", "ca", "co", "mo", "no",
	"sa", "ta", "va", "ha", "ho", "sk", "sp", "tr", "ch", "sh", "ll", "a", "b", "c", "d",
	"e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "t", "u",
	"v", "w", "x", "y", "z", "0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
}

// openingHoursStems is tuned for opening_hours expressions.
var openingHoursStems = []string{
	"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su", "PH", "SH", "Mo-Fr", "Mo-Sa", "Mo-Su",
	"Sa-Su", "Mo-Th", "Tu-Su", "Tu-Sa", "Mo-Fr ", "Sa ", "Su ", "Mo-Sa ", "Mo-Su ", "Sa,Su",
	"Sa-Su ", "PH off", "PH closed", "off", "closed", "open", "24/7", "sunrise", "sunset",
	"dawn", "dusk", " ", ", ", ",", ";", "; ", "-", ":", ":00", ":30", ":15", ":45",
	"00:00", "24:00", "00:00-24:00", "06:00", "07:00", "08:00", "09:00", "10:00", "11:00",
	"12:00", "13:00", "14:00", "15:00", "16:00", "17:00", "18:00", "19:00", "20:00",
	"21:00", "22:00", "23:00", "07:30", "08:30", "09:30", "10:30", "11:30", "12:30",
	"13:30", "14:30", "15:30", "16:30", "17:30", "18:30", "19:30", "20:30", "21:30",
	"-17:00", "-18:00", "-19:00", "-20:00", "-21:00", "-22:00", "-23:00", "-24:00",
	"-14:00", "-15:00", "-16:00", "-13:00", "08:00-17:00", "09:00-18:00", "10:00-18:00",
	"09:00-17:00", "08:00-20:00", "10:00-22:00", "11:00-23:00", "09:00-21:00",
	"10:00-20:00", "08:00-18:00", "12:00-13:00", "Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Mo-Fr 08:00-", "Mo-Fr 09:00-",
	"Mo-Fr 10:00-", "Sa 09:00-", "Sa 10:00-", "Su 10:00-", "\"", "by appointment",
	"appointment", "week", "easter", "[", "]", "+", "/", "00", "30", "0", "1", "2", "3",
	"4", "5", "6", "7", "8", "9",
}

// phoneStems is tuned for phone numbers.
var phoneStems = []string{
	"+7", "+7 ", "+49", "+49 ", "+1", "+1 ", "+44", "+44 ", "+33", "+33 ", "+39", "+39 ",
	"+34", "+34 ", "+380", "+380 ", "+375", "+375 ", "+48", "+48 ", "+43", "+41", "+420",
	"+421", "+36", "+40", "+30", "+31", "+32", "+45", "+46", "+47", "+358", "+370", "+371",
	"+372", "+90", "+995", "+374", "+994", "+998", "+77", " ", "-", "(", ")", " (", ") ",
	"+", "/", ";", "; ", ",", ".", "8 ", "8-", "ext", "доб", "800", "495", "499", "812",
	"383", "343", "846", "861", "863", "0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"00", "01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12", "13",
	"14", "15", "16", "17", "18", "19", "20", "21", "22", "23", "24", "25", "26", "27",
	"28", "29", "30", "31", "32", "33", "34", "35", "36", "37", "38", "39", "40", "41",
	"42", "43", "44", "45", "46", "47", "48", "49", "50", "51", "52", "53", "54", "55",
	"56", "57", "58", "59", "60", "61", "62", "63", "64", "65", "66", "67", "68", "69",
	"70", "71", "72", "73", "74", "75", "76", "77", "78", "79", "80", "81", "82", "83",
	"84", "85", "86", "87", "88", "89", "90", "91", "92", "93", "94", "95", "96", "97",
	"98", "99",
}

// Codebooks in use. Their contents are part of the feature index format.
var (
	Default      = MustCodebook(defaultStems)
	URL          = MustCodebook(urlStems)
	OpeningHours = MustCodebook(openingHoursStems)
	Phone        = MustCodebook(phoneStems)
)
